// Package mocks provides gomock doubles for the dashboard's outbound ports.
//
// To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockAPI(ctrl)
//	api.EXPECT().Get(gomock.Any(), "/courses", gomock.Any()).Return(nil)
package mocks

// Generate mock for the backend API interface.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_mock.go github.com/course-portal/portal/internal/platform/backend API
