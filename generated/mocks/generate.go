package mocks

// mockgen rules for generating mocks for exported interfaces (reflection mode).
//go:generate sh -c "mockgen -package=registry -destination=$GOPATH/src/$PACKAGE/registry/registry_mock.go $PACKAGE/registry Listener"
