package main

import (
    "github.com/caarlos0/env/v11"

    "encoding/json"
    "flag"
    "log"
    "os"
    "time"
)

type Args struct {
    // IP on which the server will accept connections. Defaults to 0.0.0.0
    IP string `env:"CHAT_IP"`
    // Port on which the server will accept connections. Defaults to 8888
    Port int `env:"CHAT_PORT"`
    // RedisAddr of the shared Redis instance backing the registry and the bus. Defaults to localhost:6379
    RedisAddr string `env:"CHAT_REDIS_ADDR"`
    // Channel is the name of the single pub/sub topic shared by every connection. Defaults to world
    Channel string `env:"CHAT_CHANNEL"`
    // StatusPeriod between two status cache refreshes. Defaults to 1m
    StatusPeriod time.Duration `env:"CHAT_STATUS_PERIOD"`
    // ReadSize allocated for gorilla-ws's buffer when a new connection is accepted. Defaults to 1024
    ReadSize int `env:"CHAT_READ_SIZE"`
    // WriteSize allocated for gorilla-ws's buffer when a new connection is accepted. Defaults to 1024
    WriteSize int `env:"CHAT_WRITE_SIZE"`
    // IgnoreOrigin and accept connections from any source (mostly for development)
    IgnoreOrigin bool `env:"CHAT_IGNORE_ORIGIN"`
    // DebugLog and report every event handled by the relay
    DebugLog bool `env:"CHAT_DEBUG_LOG"`
}

// parseArgs from the environment, from the command line or from the
// supplied JSON file.
//
// Environment variables override the built-in defaults, and are in turn
// overriden by CLI-supplied arguments. If a JSON file is supplied, it's
// used as the base configuration instead, which may still be overriden by
// CLI-supplied arguments.
func parseArgs() Args {
    var confFile string

    // The built-in defaults, possibly overriden by the environment.
    args := Args {
        IP: "0.0.0.0",
        Port: 8888,
        RedisAddr: "localhost:6379",
        Channel: "world",
        StatusPeriod: time.Minute,
        ReadSize: 1024,
        WriteSize: 1024,
        IgnoreOrigin: true,
    }
    err := env.Parse(&args)
    if err != nil {
        log.Fatalf("Couldn't parse the environment: %+v", err)
    }

    flag.StringVar(&args.IP, "IP", args.IP, "IP on which the server will accept connections")
    flag.IntVar(&args.Port, "Port", args.Port, "Port on which the server will accept connections")
    flag.StringVar(&args.RedisAddr, "RedisAddr", args.RedisAddr, "Address of the shared Redis instance backing the registry and the bus")
    flag.StringVar(&args.Channel, "Channel", args.Channel, "Name of the single pub/sub topic shared by every connection")
    flag.DurationVar(&args.StatusPeriod, "StatusPeriod", args.StatusPeriod, "Period between two status cache refreshes")
    flag.IntVar(&args.ReadSize, "ReadSize", args.ReadSize, "ReadSize allocated for gorilla-ws's buffer when a new connection is accepted")
    flag.IntVar(&args.WriteSize, "WriteSize", args.WriteSize, "WriteSize allocated for gorilla-ws's buffer when a new connection is accepted")
    flag.BoolVar(&args.IgnoreOrigin, "IgnoreOrigin", args.IgnoreOrigin, "IgnoreOrigin and accept connections from any source (mostly for development)")
    flag.BoolVar(&args.DebugLog, "DebugLog", args.DebugLog, "DebugLog and report every event handled by the relay")
    flag.StringVar(&confFile, "confFile", "", "JSON file with the configuration options. May be overriden by other CLI arguments")
    flag.Parse()

    if len(confFile) != 0 {
        var jsonArgs Args

        f, err := os.Open(confFile)
        if err != nil {
            log.Fatalf("Couldn't open the configuration file '%+v': %+v", confFile, err)
        }
        defer f.Close()

        dec := json.NewDecoder(f)
        err = dec.Decode(&jsonArgs)
        if err != nil {
            log.Fatalf("Couldn't decode the configuration file '%+v': %+v", confFile, err)
        }

        // Walk over every set argument to override the JSON file
        flag.Visit(func (f *flag.Flag) {
            if f.Name == "confFile" {
                // Skip the file itself
                return
            }

            var tmp interface{}
            tmp = f.Value
            get, ok := tmp.(flag.Getter)
            if !ok {
                log.Fatalf("'%s' doesn't have an associated flag.Getter", f.Name)
            }

            switch f.Name {
            case "IP":
                val, _ := get.Get().(string)
                log.Printf("Overriding JSON's IP (%+v) with CLI's value (%+v)", jsonArgs.IP, val)
                jsonArgs.IP = val
            case "Port":
                val, _ := get.Get().(int)
                log.Printf("Overriding JSON's Port (%+v) with CLI's value (%+v)", jsonArgs.Port, val)
                jsonArgs.Port = val
            case "RedisAddr":
                val, _ := get.Get().(string)
                log.Printf("Overriding JSON's RedisAddr (%+v) with CLI's value (%+v)", jsonArgs.RedisAddr, val)
                jsonArgs.RedisAddr = val
            case "Channel":
                val, _ := get.Get().(string)
                log.Printf("Overriding JSON's Channel (%+v) with CLI's value (%+v)", jsonArgs.Channel, val)
                jsonArgs.Channel = val
            case "StatusPeriod":
                val, _ := get.Get().(time.Duration)
                log.Printf("Overriding JSON's StatusPeriod (%+v) with CLI's value (%+v)", jsonArgs.StatusPeriod, val)
                jsonArgs.StatusPeriod = val
            case "ReadSize":
                val, _ := get.Get().(int)
                log.Printf("Overriding JSON's ReadSize (%+v) with CLI's value (%+v)", jsonArgs.ReadSize, val)
                jsonArgs.ReadSize = val
            case "WriteSize":
                val, _ := get.Get().(int)
                log.Printf("Overriding JSON's WriteSize (%+v) with CLI's value (%+v)", jsonArgs.WriteSize, val)
                jsonArgs.WriteSize = val
            case "IgnoreOrigin":
                val, _ := get.Get().(bool)
                log.Printf("Overriding JSON's IgnoreOrigin (%+v) with CLI's value (%+v)", jsonArgs.IgnoreOrigin, val)
                jsonArgs.IgnoreOrigin = val
            case "DebugLog":
                val, _ := get.Get().(bool)
                log.Printf("Overriding JSON's DebugLog (%+v) with CLI's value (%+v)", jsonArgs.DebugLog, val)
                jsonArgs.DebugLog = val
            }
        })

        args = jsonArgs
    }

    log.Printf("Starting server with options:")
    log.Printf("  - IP: %+v", args.IP)
    log.Printf("  - Port: %+v", args.Port)
    log.Printf("  - RedisAddr: %+v", args.RedisAddr)
    log.Printf("  - Channel: %+v", args.Channel)
    log.Printf("  - StatusPeriod: %+v", args.StatusPeriod)
    log.Printf("  - ReadSize: %+v", args.ReadSize)
    log.Printf("  - WriteSize: %+v", args.WriteSize)
    log.Printf("  - IgnoreOrigin: %+v", args.IgnoreOrigin)
    log.Printf("  - DebugLog: %+v", args.DebugLog)

    return args
}
