// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package token implements password-reset tokens: HS256 JWTs signed per site,
// lifetime parsing for site configuration, and a Redis-backed guard that makes
// tokens single-use.
package token
