package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jukedrop/jukedrop/internal/apperr"
)

// QueueTrack enqueues a single track on the owner's active playback device.
// With no active device Spotify answers 404, surfaced here as
// apperr.ErrNoActiveDevice.
func (c *Client) QueueTrack(ctx context.Context, refreshToken, uri string) error {
	api := c.ownerAPI(ctx, refreshToken)

	err := c.do(ctx, "queueing track", func(ctx context.Context) error {
		return api.QueueSong(ctx, trackIDFromURI(uri))
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("queueing track: %w", apperr.ErrNoActiveDevice)
	}
	return err
}

// Devices lists the owner's available playback devices.
func (c *Client) Devices(ctx context.Context, refreshToken string) ([]Device, error) {
	api := c.ownerAPI(ctx, refreshToken)

	var devices []Device
	err := c.do(ctx, "listing devices", func(ctx context.Context) error {
		found, err := api.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		devices = make([]Device, len(found))
		for i, d := range found {
			devices[i] = Device{
				ID:     d.ID.String(),
				Name:   d.Name,
				Type:   d.Type,
				Active: d.Active,
			}
		}
		return nil
	})
	return devices, err
}
