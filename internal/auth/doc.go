// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package auth implements the credential lifecycle: login, registration, and
// the two-phase password reset.
//
// # Flows
//
// Each flow is an orchestration over injected collaborators:
//   - LoginFlow - checks an email and password against a stored record
//   - RegistrationFlow - creates a record with a unique email
//   - PasswordResetFlow - emails a reset token and later consumes it
//
// Flows are built per site from a Config with New*Flow constructors that
// validate their dependencies. They hold no state between calls.
//
// # Collaborators
//
// RecordStore, TokenService, and Notifier are interfaces. Stored records must
// satisfy CredentialRecord; Account is the implementation used by the
// bundled stores and hashes with Argon2idHasher.
//
// # Errors
//
// Every flow failure is an *Error carrying a Code. Codes of KindCaller have a
// message that is safe to return verbatim. Codes of KindSystem are logged
// with their cause and only GenericMessage reaches the caller.
package auth
