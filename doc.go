// Package identity is the identity and access-control core for a
// project-management backend: account registration and confirmation,
// single-use verification tokens, password resets, JWT sessions, and
// per-project authorization.
//
// Account lifecycle:
//   - Accounts start unconfirmed. Registration issues a single-use
//     VerificationToken which a later Confirm call consumes, flipping the
//     account to confirmed exactly once. Password resets follow the same
//     token flow. At most one token is outstanding per account at any time;
//     issuing a new one replaces the previous inside a single transaction.
//   - Lifecycle operations are command handlers (RegisterAccountHandler,
//     ConfirmAccountHandler, ...) that run against a RepositoryManager and
//     notify the Mailer collaborator.
//
// Sessions:
//   - Auther verifies credentials and mints signed, stateless JWT session
//     credentials with an explicit expiry. The middleware/jwtware subpackage
//     validates them on each request and the RouteAuthenticator resolves the
//     claims back to an Account.
//
// Project authorization:
//   - ProjectAuthorizer derives an Owner/Member/Unauthorized role from the
//     external ProjectDirectory collaborator and gates mutating routes
//     before any handler logic runs.
package identity
