package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"riffle/internal/config"
	"riffle/internal/ipc"
)

// socketEnv is exported by riffled to commands it executes, so riffle
// invoked from one of those reaches the right daemon without flags.
const socketEnv = "RIFFLE_SOCKET"

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// socketPath resolves the daemon socket: flag, then environment, then
// configuration.
func (c *commandContext) socketPath() (string, error) {
	if c.socketFlag != nil {
		if s := strings.TrimSpace(*c.socketFlag); s != "" {
			return s, nil
		}
	}
	if s := strings.TrimSpace(os.Getenv(socketEnv)); s != "" {
		return s, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", fmt.Errorf("resolve socket path: %w", err)
	}
	return cfg.SocketPath(), nil
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket, err := c.socketPath()
	if err != nil {
		return err
	}
	client, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to riffled: socket %s not found; is riffled running?", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to riffled: socket %s refused the connection; remove it if riffled crashed", socket)
	default:
		return fmt.Errorf("connect to riffled: %w", err)
	}
}
