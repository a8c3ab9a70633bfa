package common

// AdminTokenHeaderName is the HTTP header that carries the shared admin
// token on mutating requests.
const AdminTokenHeaderName = "x-admin-token"
