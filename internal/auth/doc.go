// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package auth provides authentication primitives for LexiClass.
//
// # Domain Types
//
// Users should be created with NewUser, which validates the username,
// role and display name. Identity is the credential-free projection of a
// User and is the only user shape that leaves the package boundary.
//
// # Services
//
//   - CredentialValidator - verifies a username/password pair (read-only)
//   - TokenIssuer - issues and decodes stateless HS256 session tokens
//   - Service - login, bearer authorization and student listing
//   - Provisioner - account creation for the CLI
//
// Failures are classified with errors.Is against the sentinel errors in
// this package. Token failures all collapse to ErrUnauthenticated at the
// HTTP boundary.
package auth
