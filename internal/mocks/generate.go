// Package mocks provides mock implementations for testing the perch backend.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockProfileRepository(ctrl)
//	mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(profile, nil)
package mocks

// Generate mock for ProfileRepository interface from internal/ports package.
// This creates MockProfileRepository with methods for all ProfileRepository interface methods:
// Get, Upsert
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_repository_mock.go github.com/perch-hq/perch-ui-api/internal/ports ProfileRepository

// Generate mock for PreferenceRepository interface from internal/ports package.
// This creates MockPreferenceRepository with methods for all PreferenceRepository interface methods:
// Get, Upsert
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=preference_repository_mock.go github.com/perch-hq/perch-ui-api/internal/ports PreferenceRepository
