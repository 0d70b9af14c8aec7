package driver

import (
	"io/ioutil"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd"
)

// ErrNoBrowser the browser binary could not be found
var ErrNoBrowser = errors.New("browser binary not found")

// RandPort returns a free local port for a debugger to listen on
func RandPort() string {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		log.Warn().Err(err).Msg("unable to get port using default 9022")
		return "9022"
	}
	_, randPort, _ := net.SplitHostPort(l.Addr().String())
	l.Close()
	return randPort
}

// RandProfile creates a throwaway profile directory under tmp
func RandProfile(tmp string) (string, error) {
	if err := os.MkdirAll(tmp, 0700); err != nil {
		return "", errors.Wrap(err, "failed to create profile root")
	}
	profile, err := ioutil.TempDir(tmp, "gcd")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary profile directory")
	}
	// an empty profile would have the browser delete from the working directory on exit
	if profile == "" {
		return "", errors.New("profile returned empty")
	}
	return profile, nil
}

// LocalLeaser starts and tracks debugger controlled browser processes on this host
type LocalLeaser struct {
	browserLock sync.RWMutex
	browsers    map[string]*gcd.Gcd
	tmp         string
}

// NewLocalLeaser that creates profiles under tmp
func NewLocalLeaser(tmp string) *LocalLeaser {
	return &LocalLeaser{
		browsers: make(map[string]*gcd.Gcd),
		tmp:      tmp,
	}
}

// Acquire starts the browser at path with flags, returning the debugger port and
// the connected debugger.
func (s *LocalLeaser) Acquire(path string, flags []string) (string, *gcd.Gcd, error) {
	if path == "" {
		return "", nil, ErrNoBrowser
	}

	profileDir, err := RandProfile(s.tmp)
	if err != nil {
		return "", nil, err
	}
	port := RandPort()

	b := gcd.NewChromeDebugger()
	b.DeleteProfileOnExit()
	b.AddFlags(flags)
	if err := b.StartProcess(path, profileDir, port); err != nil {
		os.RemoveAll(profileDir)
		return "", nil, errors.Wrapf(err, "failed to start %s", path)
	}

	s.browserLock.Lock()
	s.browsers[port] = b
	s.browserLock.Unlock()

	log.Debug().Str("port", port).Str("profile", profileDir).Msg("browser started")
	return port, b, nil
}

// Return stops the browser listening on port
func (s *LocalLeaser) Return(port string) error {
	s.browserLock.Lock()
	defer s.browserLock.Unlock()

	if b, ok := s.browsers[port]; ok {
		delete(s.browsers, port)
		if err := b.ExitProcess(); err != nil {
			return err
		}
		return nil
	}

	return errors.New("not found")
}
