package driver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"blockdock/internal/domain"
)

// gamePort is the fixed port the server listens on inside the container; the
// host side is configurable per server.
const gamePort = "25565/tcp"

const containerPrefix = "mc-"

// DockerDriver implements Driver against the Docker Engine API.
type DockerDriver struct {
	cli *client.Client
	log *slog.Logger
}

// NewDocker connects to the local Docker daemon using the standard
// environment (DOCKER_HOST etc.) with API version negotiation.
func NewDocker(log *slog.Logger) (*DockerDriver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, &domain.DriverError{Op: "connect", Err: err}
	}
	return &DockerDriver{cli: cli, log: log}, nil
}

func (d *DockerDriver) Provision(ctx context.Context, spec ProvisionSpec) (Handle, error) {
	memBytes, err := ParseMemory(spec.Memory)
	if err != nil {
		return "", &domain.DriverError{Op: "provision", Err: err}
	}

	// Best-effort pull: an offline host can still provision if the image is
	// already present, in which case create below succeeds anyway.
	if reader, err := d.cli.ImagePull(ctx, spec.Image, image.PullOptions{}); err != nil {
		d.log.Warn("image pull failed, trying local image", "image", spec.Image, "error", err)
	} else {
		io.Copy(io.Discard, reader)
		reader.Close()
	}

	portSet := nat.PortSet{nat.Port(gamePort): struct{}{}}
	portMap := nat.PortMap{
		nat.Port(gamePort): []nat.PortBinding{
			{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", spec.Port)},
		},
	}

	name := string(HandleFor(spec.Name))
	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        spec.Image,
			Env:          spec.Env,
			ExposedPorts: portSet,
			Tty:          true,
			OpenStdin:    true,
		},
		&container.HostConfig{
			PortBindings: portMap,
			Mounts: []mount.Mount{
				{Type: mount.TypeBind, Source: spec.DataPath, Target: "/data"},
			},
			Resources: container.Resources{Memory: memBytes},
		},
		nil, nil, name)
	if err != nil {
		return "", &domain.DriverError{Op: "provision", Err: err}
	}

	d.log.Debug("container created", "name", name, "id", resp.ID)
	return Handle(name), nil
}

func (d *DockerDriver) Start(ctx context.Context, h Handle) error {
	if err := d.cli.ContainerStart(ctx, string(h), container.StartOptions{}); err != nil {
		return &domain.DriverError{Op: "start", Err: err}
	}
	return nil
}

func (d *DockerDriver) Stop(ctx context.Context, h Handle, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	if err := d.cli.ContainerStop(ctx, string(h), container.StopOptions{Timeout: &seconds}); err != nil {
		return &domain.DriverError{Op: "stop", Err: err}
	}
	return nil
}

func (d *DockerDriver) Kill(ctx context.Context, h Handle) error {
	if err := d.cli.ContainerKill(ctx, string(h), "SIGKILL"); err != nil {
		return &domain.DriverError{Op: "kill", Err: err}
	}
	return nil
}

func (d *DockerDriver) Remove(ctx context.Context, h Handle) error {
	if err := d.cli.ContainerRemove(ctx, string(h), container.RemoveOptions{}); err != nil {
		return &domain.DriverError{Op: "remove", Err: err}
	}
	return nil
}

func (d *DockerDriver) ExecInteractive(ctx context.Context, h Handle, in io.Reader, out io.Writer) error {
	resp, err := d.cli.ContainerAttach(ctx, string(h), container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return &domain.DriverError{Op: "attach", Err: err}
	}
	defer resp.Close()

	done := make(chan error, 2)
	go func() {
		// Containers are created with a TTY, so the stream is not multiplexed.
		_, err := io.Copy(out, resp.Reader)
		done <- err
	}()
	go func() {
		_, err := io.Copy(resp.Conn, in)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && err != io.EOF {
			return &domain.DriverError{Op: "attach", Err: err}
		}
		return nil
	}
}

func (d *DockerDriver) StreamLogs(ctx context.Context, h Handle, follow bool) (<-chan string, error) {
	reader, err := d.cli.ContainerLogs(ctx, string(h), container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	})
	if err != nil {
		return nil, &domain.DriverError{Op: "logs", Err: err}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		defer reader.Close()

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return lines, nil
}

func (d *DockerDriver) Status(ctx context.Context, h Handle) (domain.RuntimeStatus, error) {
	inspect, err := d.cli.ContainerInspect(ctx, string(h))
	if err != nil {
		if errdefs.IsNotFound(err) {
			return domain.StatusAbsent, nil
		}
		return domain.StatusError, &domain.DriverError{Op: "inspect", Err: err}
	}

	if inspect.State == nil {
		return domain.StatusError, &domain.DriverError{Op: "inspect", Err: fmt.Errorf("container %s has no state", h)}
	}

	switch inspect.State.Status {
	case "created":
		return domain.StatusProvisioned, nil
	case "running", "restarting", "paused":
		return domain.StatusRunning, nil
	case "exited", "removing":
		return domain.StatusStopped, nil
	default: // "dead" and anything the API grows later
		return domain.StatusError, nil
	}
}
