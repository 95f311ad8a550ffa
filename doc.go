// Package authkit handles the credential lifecycle for a service: signed
// JWT pairs, token rotation and revocation, and email based account
// activation.
//
// Tokens:
//   - TokenService issues HS256 signed access and refresh tokens, each
//     class with its own signing key. Access tokens are short-lived request
//     credentials; refresh tokens only mint new pairs and are revoked on
//     every exchange.
//   - Logout writes the access token id to a blacklist. The JWT middleware
//     checks the blacklist on every request, so revocation is immediate.
//
// Accounts:
//   - RegisterUserHandler creates inactive accounts and emails a six digit
//     activation code valid for fifteen minutes. ActivateAccountHandler
//     consumes the code; expired codes trigger a replacement email and
//     consumed codes are rejected.
//   - Persistence goes through bun repositories behind a RepositoryManager
//     so callers can compose the flows into their own transactions.
//
// HTTP:
//   - RegisterAuthRoutes mounts the JSON endpoints for login, refresh,
//     logout, registration, and activation on any go-router router.
//     RouteAuthenticator.ProtectedRoute produces the gateway middleware.
package authkit
