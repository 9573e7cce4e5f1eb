// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package mocks provides testify mocks for the auth collaborator interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/credgate/credgate/internal/auth"
)

// T is the subset of *testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

func register(t T, m *mock.Mock, assert func(mock.TestingT) bool) {
	m.Test(t)
	t.Cleanup(func() { assert(t) })
}

func record(v any) auth.Record {
	if v == nil {
		return nil
	}
	return v.(auth.Record)
}

// MockRecordStore mocks auth.RecordStore.
type MockRecordStore struct {
	mock.Mock
}

// NewMockRecordStore creates a MockRecordStore that asserts its
// expectations when the test ends.
func NewMockRecordStore(t T) *MockRecordStore {
	m := &MockRecordStore{}
	register(t, &m.Mock, m.AssertExpectations)
	return m
}

// FindByEmail implements auth.RecordStore.
func (m *MockRecordStore) FindByEmail(ctx context.Context, tenant auth.Tenant, email string) (auth.Record, error) {
	ret := m.Called(ctx, tenant, email)
	return record(ret.Get(0)), ret.Error(1)
}

// FindByID implements auth.RecordStore.
func (m *MockRecordStore) FindByID(ctx context.Context, tenant auth.Tenant, id string) (auth.Record, error) {
	ret := m.Called(ctx, tenant, id)
	return record(ret.Get(0)), ret.Error(1)
}

// Create implements auth.RecordStore.
func (m *MockRecordStore) Create(ctx context.Context, tenant auth.Tenant, rec auth.NewRecord) (auth.Record, error) {
	ret := m.Called(ctx, tenant, rec)
	return record(ret.Get(0)), ret.Error(1)
}

// Save implements auth.RecordStore.
func (m *MockRecordStore) Save(ctx context.Context, rec auth.Record) error {
	return m.Called(ctx, rec).Error(0)
}

// MockTokenService mocks auth.TokenService.
type MockTokenService struct {
	mock.Mock
}

// NewMockTokenService creates a MockTokenService.
func NewMockTokenService(t T) *MockTokenService {
	m := &MockTokenService{}
	register(t, &m.Mock, m.AssertExpectations)
	return m
}

// Issue implements auth.TokenService.
func (m *MockTokenService) Issue(expiresIn time.Duration, payload auth.TokenPayload) (string, error) {
	ret := m.Called(expiresIn, payload)
	return ret.String(0), ret.Error(1)
}

// Verify implements auth.TokenService.
func (m *MockTokenService) Verify(token string) bool {
	return m.Called(token).Bool(0)
}

// Decode implements auth.TokenService.
func (m *MockTokenService) Decode(token string) (auth.TokenPayload, error) {
	ret := m.Called(token)
	return ret.Get(0).(auth.TokenPayload), ret.Error(1)
}

// MockNotifier mocks auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier.
func NewMockNotifier(t T) *MockNotifier {
	m := &MockNotifier{}
	register(t, &m.Mock, m.AssertExpectations)
	return m
}

// Send implements auth.Notifier.
func (m *MockNotifier) Send(ctx context.Context, msg auth.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// MockReplayGuard mocks auth.ReplayGuard.
type MockReplayGuard struct {
	mock.Mock
}

// NewMockReplayGuard creates a MockReplayGuard.
func NewMockReplayGuard(t T) *MockReplayGuard {
	m := &MockReplayGuard{}
	register(t, &m.Mock, m.AssertExpectations)
	return m
}

// Consume implements auth.ReplayGuard.
func (m *MockReplayGuard) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ret := m.Called(ctx, tokenID, expiresAt)
	return ret.Bool(0), ret.Error(1)
}

// MockCredentialRecord mocks auth.CredentialRecord.
type MockCredentialRecord struct {
	mock.Mock
}

// NewMockCredentialRecord creates a MockCredentialRecord.
func NewMockCredentialRecord(t T) *MockCredentialRecord {
	m := &MockCredentialRecord{}
	register(t, &m.Mock, m.AssertExpectations)
	return m
}

// Identifier implements auth.Record.
func (m *MockCredentialRecord) Identifier() string {
	return m.Called().String(0)
}

// Fields implements auth.Record.
func (m *MockCredentialRecord) Fields() map[string]any {
	ret := m.Called()
	if v := ret.Get(0); v != nil {
		return v.(map[string]any)
	}
	return nil
}

// VerifyPassword implements auth.CredentialRecord.
func (m *MockCredentialRecord) VerifyPassword(plaintext string) bool {
	return m.Called(plaintext).Bool(0)
}

// SetPassword implements auth.CredentialRecord.
func (m *MockCredentialRecord) SetPassword(plaintext string) {
	m.Called(plaintext)
}

// PlainRecord is an auth.Record without password capabilities, standing in
// for a misconfigured store.
type PlainRecord struct {
	ID     string
	Values map[string]any
}

// Identifier implements auth.Record.
func (r PlainRecord) Identifier() string { return r.ID }

// Fields implements auth.Record.
func (r PlainRecord) Fields() map[string]any { return r.Values }
