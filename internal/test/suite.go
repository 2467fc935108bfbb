package test

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/hellofresh/bankengine"
	logrusExtension "github.com/hellofresh/bankengine/extension/logrus"
)

// testWriter forwards log lines to the running test so they only show up for failures or -v
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSpace(string(p)))

	return len(p), nil
}

func newLogrus(t testing.TB) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(testWriter{t: t})

	return l
}

// NewLogger returns a debug level logger writing to t and a hook recording every entry
func NewLogger(t testing.TB) (bankengine.Logger, *logrusTest.Hook) {
	l := newLogrus(t)

	return logrusExtension.Wrap(l), logrusTest.NewLocal(l)
}

// Suite provides each test with a fresh Logger whose entries are recorded by LoggerHook
type Suite struct {
	suite.Suite

	Logger     bankengine.Logger
	LoggerHook *logrusTest.Hook

	logrus *logrus.Logger
}

func (s *Suite) SetupTest() {
	s.logrus = newLogrus(s.T())
	s.Logger = logrusExtension.Wrap(s.logrus)
	s.LoggerHook = logrusTest.NewLocal(s.logrus)
}

func (s *Suite) TearDownTest() {
	s.Logger = nil
	s.LoggerHook = nil
	s.logrus = nil
}

// SetT also redirects the log output, testify calls it when entering and leaving s.Run
func (s *Suite) SetT(t *testing.T) {
	s.Suite.SetT(t)

	if s.logrus != nil {
		s.logrus.SetOutput(testWriter{t: t})
	}
}

// AssertNoLogsWithLevelOrHigher fails the test for every recorded entry at lvl or more severe
func (s *Suite) AssertNoLogsWithLevelOrHigher(lvl logrus.Level) {
	for _, entry := range s.LoggerHook.AllEntries() {
		if entry.Level <= lvl {
			s.Failf("unexpected log entry", "level %s: %s", entry.Level, entry.Message)
		}
	}
}
