package common

// SessionTokenHeaderName is the gRPC metadata key used to carry the session
// token issued by a successful Verify call.
const SessionTokenHeaderName = "session_token"
