// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

// Flows bundles the three flows for one site.
type Flows struct {
	Login    *LoginFlow
	Register *RegistrationFlow
	Reset    *PasswordResetFlow
}

// NewFlows builds every flow from one Config.
func NewFlows(cfg Config) (*Flows, error) {
	login, err := NewLoginFlow(cfg)
	if err != nil {
		return nil, err
	}
	register, err := NewRegistrationFlow(cfg)
	if err != nil {
		return nil, err
	}
	reset, err := NewPasswordResetFlow(cfg)
	if err != nil {
		return nil, err
	}
	return &Flows{Login: login, Register: register, Reset: reset}, nil
}
