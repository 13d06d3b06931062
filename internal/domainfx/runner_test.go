package domainfx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yurykabanov/logrotate/internal/configfx"
	"github.com/yurykabanov/logrotate/pkg/domain"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/status"
)

// region configParserMock
type configParserMock struct {
	mock.Mock
}

func (m *configParserMock) Parse(sources []string) (*policy.Config, error) {
	args := m.Called(sources)

	if cfg := args.Get(0); cfg != nil {
		return cfg.(*policy.Config), args.Error(1)
	}

	return nil, args.Error(1)
}

// endregion

// region rotationManagerMock
type rotationManagerMock struct {
	mock.Mock
}

func (m *rotationManagerMock) Run(ctx context.Context, cfg *policy.Config) {
	m.Called(ctx, cfg)
}

// endregion

// region schedulerMock
type schedulerMock struct {
	mock.Mock
}

func (m *schedulerMock) Run(ctx context.Context, spec string, pass domain.Pass) error {
	args := m.Called(ctx, spec, pass)
	return args.Error(0)
}

// endregion

type staticLister []status.Record

func (l staticLister) All(ctx context.Context) ([]status.Record, error) {
	return l, nil
}

func discardLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestRunner_Run_SinglePass(t *testing.T) {
	options := &configfx.Options{Configs: []string{"/etc/logrotate.conf"}}
	cfg := policy.NewConfig()

	parser := &configParserMock{}
	parser.On("Parse", []string{"/etc/logrotate.conf"}).Return(cfg, nil).Once()

	manager := &rotationManagerMock{}
	manager.On("Run", mock.Anything, cfg).Return().Once()

	r := NewRunner(discardLogger(), options, parser, manager, &schedulerMock{}, staticLister{})

	require.Nil(t, r.Run(context.Background()))

	parser.AssertExpectations(t)
	manager.AssertExpectations(t)
}

func TestRunner_Run_ParseFailure(t *testing.T) {
	options := &configfx.Options{Configs: []string{"/etc/logrotate.conf"}}

	parser := &configParserMock{}
	parser.On("Parse", mock.Anything).Return(nil, policy.ErrIncludeNotFound)

	manager := &rotationManagerMock{}

	r := NewRunner(discardLogger(), options, parser, manager, &schedulerMock{}, staticLister{})

	err := r.Run(context.Background())

	assert.Equal(t, policy.ErrIncludeNotFound, errors.Cause(err))
	manager.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRunner_Run_Schedule(t *testing.T) {
	options := &configfx.Options{Schedule: "@daily", Configs: []string{"/etc/logrotate.conf"}}

	scheduler := &schedulerMock{}
	scheduler.On("Run", mock.Anything, "@daily", mock.Anything).Return(nil).Once()

	r := NewRunner(discardLogger(), options, &configParserMock{}, &rotationManagerMock{}, scheduler, staticLister{})

	require.Nil(t, r.Run(context.Background()))
	scheduler.AssertExpectations(t)
}

func TestRunner_Run_List(t *testing.T) {
	options := &configfx.Options{List: true}
	records := staticLister{
		{Path: "/var/log/app.log", RotatedAt: time.Date(2020, 3, 11, 12, 0, 0, 0, time.Local)},
	}

	r := NewRunner(discardLogger(), options, &configParserMock{}, &rotationManagerMock{}, &schedulerMock{}, records)

	out := &bytes.Buffer{}
	r.out = out

	require.Nil(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "/var/log/app.log")
	assert.Contains(t, out.String(), "2020-03-11 12:00:00")
}
