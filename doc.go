// Package trust provides the trust layer of a credential-vault backend:
// purpose-scoped JWT issuance and validation, the layered request guard
// chain, and the emergency-access delegation workflow.
//
// Tokens:
//   - TokenCodec signs RS256 tokens whose issuer binds them to a single
//     purpose (login, invite, delete, verify-email, admin session). A token
//     minted for one purpose never validates for another, so an invite
//     token can not be replayed as a login token.
//   - Login tokens embed the user's security stamp. Rotating the stamp via
//     Users.RotateSecurityStamp invalidates every outstanding login token
//     for that user regardless of expiry.
//
// Guard chain:
//   - GuardChain resolves a request progressively: bearer identity, then
//     organization membership, then admin or owner tier. Each stage calls
//     the previous one and returns an immutable context value; failures
//     short-circuit with typed errors that render as generic messages.
//
// Emergency access:
//   - EmergencyAccessStateMachine centralizes the delegation lifecycle
//     (Invited through RecoveryApproved) with an injectable clock, and owns
//     the two time-driven rules: auto-approval after the waiting period and
//     the daily reminder to the grantor.
//   - RecoveryScheduler drives those rules on independent tickers,
//     isolating per-record failures so one broken record never starves the
//     rest of a run.
package trust
