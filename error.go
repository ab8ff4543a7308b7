package kitsune_chat

// Error type for this package.
type ChatError uint

const (
    // The queried key does not exist in the backing store.
    NotFound ChatError = iota
    // Invalid nonce. Either the nonce was never issued or it has already
    // expired.
    InvalidNonce
    // The connection to the remote endpoint was closed.
    ConnEOF
    // The subscription was closed and won't yield any further message.
    SubscriptionClosed
    // A test didn't receive an expected message in a timely manner.
    TestTimeout
)

func (c ChatError) Error() string {
    switch c {
    case NotFound:
        return "Key not found"
    case InvalidNonce:
        return "Invalid nonce"
    case ConnEOF:
        return "The connection was closed"
    case SubscriptionClosed:
        return "The subscription was closed"
    case TestTimeout:
        return "Timed out waiting for a message"
    default:
        return "Unknown error"
    }
}
