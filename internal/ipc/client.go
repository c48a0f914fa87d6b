package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping checks that the daemon answers on the socket.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Riffle.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the current page environment.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Riffle.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pages retrieves the current archive's page listing.
func (c *Client) Pages() (*PagesResponse, error) {
	var resp PagesResponse
	if err := c.client.Call("Riffle.Pages", PagesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Move changes the current page.
func (c *Client) Move(direction string, pages int) (*AckResponse, error) {
	var resp AckResponse
	req := MoveRequest{Direction: direction, Pages: pages}
	if err := c.client.Call("Riffle.Move", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NextArchive jumps to the start of the following archive.
func (c *Client) NextArchive() (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.NextArchive", NextArchiveRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviousArchive jumps to the start of the preceding archive.
func (c *Client) PreviousArchive() (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.PreviousArchive", PreviousArchiveRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Manga switches manga mode.
func (c *Client) Manga(state string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.Manga", MangaRequest{State: state}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upscaling switches upscaling.
func (c *Client) Upscaling(state string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.Upscaling", UpscalingRequest{State: state}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fit selects the fit strategy.
func (c *Client) Fit(fit string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.Fit", FitRequest{Fit: fit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mode selects the display mode.
func (c *Client) Mode(mode string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.Mode", ModeRequest{Mode: mode}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resolution retargets fitting to a new "WxH" resolution.
func (c *Client) Resolution(resolution string) (*AckResponse, error) {
	var resp AckResponse
	if err := c.client.Call("Riffle.Resolution", ResolutionRequest{Resolution: resolution}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Execute runs an external command with the page environment and returns
// its outcome once it finishes.
func (c *Client) Execute(argv []string) (*ExecuteResponse, error) {
	var resp ExecuteResponse
	if err := c.client.Call("Riffle.Execute", ExecuteRequest{Argv: argv}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Riffle.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
