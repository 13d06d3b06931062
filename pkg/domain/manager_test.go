package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/storage"
)

type managerFixture struct {
	fs      *storage.Memory
	status  *memoryStatus
	hooks   *hookRunnerMock
	manager *RotationManager
}

func newManagerFixture(force bool) *managerFixture {
	fs := storage.NewMemory()
	fs.Now = fixedClock
	status := newMemoryStatus()
	hooks := &hookRunnerMock{}

	validator := NewValidator(discardLogger(), fs, status, force, fixedClock)
	service := NewRotationService(discardLogger(), fs, status, hooks, nil, false, fixedClock)

	return &managerFixture{
		fs:      fs,
		status:  status,
		hooks:   hooks,
		manager: NewRotationManager(discardLogger(), fs, validator, service, hooks),
	}
}

func (f *managerFixture) parse(t *testing.T, config string) *policy.Config {
	f.fs.WriteFile("/etc/logrotate.conf", []byte(config), testNow)

	cfg, err := policy.NewParser(discardLogger(), f.fs).Parse([]string{"/etc/logrotate.conf"})
	require.Nil(t, err)

	return cfg
}

func TestRotationManager_Run_SharedScriptsOnce(t *testing.T) {
	f := newManagerFixture(false)
	f.fs.WriteFile("/var/log/a.log", []byte("a"), testNow)
	f.fs.WriteFile("/var/log/b.log", []byte("b"), testNow)

	cfg := f.parse(t, `
/var/log/a.log /var/log/b.log {
    daily
    rotate 2
    sharedscripts
    prerotate
        echo pre
    endscript
    postrotate
        echo post
    endscript
}`)

	f.hooks.On("Run", mock.Anything, []string{"echo pre"}, "/var/log/a.log").Return(nil).Once()
	f.hooks.On("Run", mock.Anything, []string{"echo post"}, "/var/log/b.log").Return(nil).Once()

	f.manager.Run(context.Background(), cfg)

	f.hooks.AssertExpectations(t)
	f.hooks.AssertNumberOfCalls(t, "Run", 2)

	assert.Equal(t, []string{"/etc/logrotate.conf", "/var/log/a.log.0", "/var/log/b.log.0"}, f.fs.Files())
	assert.Equal(t, testNow, f.status.records["/var/log/a.log"])
	assert.Equal(t, testNow, f.status.records["/var/log/b.log"])
}

func TestRotationManager_Run_SharedPostRotateNeedsRotation(t *testing.T) {
	f := newManagerFixture(false)
	f.fs.WriteFile("/var/log/a.log", []byte("a"), testNow)
	f.status.records["/var/log/a.log"] = testNow

	cfg := f.parse(t, `
/var/log/a.log {
    daily
    sharedscripts
    postrotate
        echo post
    endscript
}`)

	f.manager.Run(context.Background(), cfg)

	f.hooks.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{"/etc/logrotate.conf", "/var/log/a.log"}, f.fs.Files())
}

func TestRotationManager_Run_FirstAndLastAction(t *testing.T) {
	f := newManagerFixture(false)

	cfg := f.parse(t, `
firstaction
    echo first
endscript
lastaction
    echo last
endscript
/var/log/missing.log {
    missingok
}`)

	var order []string

	f.hooks.On("Run", mock.Anything, mock.Anything, "").Return(nil).Run(func(args mock.Arguments) {
		order = append(order, args.Get(1).([]string)[0])
	})

	f.manager.Run(context.Background(), cfg)

	assert.Equal(t, []string{"echo first", "echo last"}, order)
}

func TestRotationManager_Run_Glob(t *testing.T) {
	f := newManagerFixture(true)
	f.fs.WriteFile("/var/log/app/one.log", []byte("1"), testNow)
	f.fs.WriteFile("/var/log/app/two.log", []byte("2"), testNow)
	f.fs.WriteFile("/var/log/app/notes.txt", []byte("n"), testNow)

	cfg := f.parse(t, `
/var/log/app/*.log {
    rotate 1
}`)

	f.manager.Run(context.Background(), cfg)

	assert.Equal(t, []string{
		"/etc/logrotate.conf",
		"/var/log/app/notes.txt",
		"/var/log/app/one.log.0",
		"/var/log/app/two.log.0",
	}, f.fs.Files())
}

func TestRotationManager_Expand(t *testing.T) {
	f := newManagerFixture(false)
	f.fs.WriteFile("/var/log/app.log", []byte("x"), testNow)
	f.fs.WriteFile("/var/log/dir/one", []byte("1"), testNow)
	f.fs.WriteFile("/var/log/dir/two", []byte("2"), testNow)
	f.fs.WriteFile("/var/log/dir/sub/three", []byte("3"), testNow)

	logger := discardLogger()

	assert.Equal(t, []string{"/var/log/app.log"}, f.manager.expand(logger, "/var/log/app.log"))
	assert.Equal(t, []string{"/var/log/dir/one", "/var/log/dir/two"}, f.manager.expand(logger, "/var/log/dir"))
	assert.Equal(t, []string{"/var/log/missing.log"}, f.manager.expand(logger, "/var/log/missing.log"))
	assert.Empty(t, f.manager.expand(logger, "/var/log/*.txt"))
}
