// ABOUTME: Role-gated admin and moderator endpoints
// ABOUTME: Users, cars and news management for ADMIN and MODERATOR sessions

package client

import (
	"context"
	"fmt"

	"github.com/carportal/carportal-cli/internal/session"
)

// NewsInput is the body for creating or editing an article
type NewsInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AdminUsers calls GET /admin/users
func (c *Client) AdminUsers(ctx context.Context) ([]session.Session, error) {
	var users []session.Session
	if err := c.getJSON(ctx, "/admin/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AdminDeleteUser calls DELETE /admin/users/{id}/delete
func (c *Client) AdminDeleteUser(ctx context.Context, userID int64) (string, error) {
	return c.deleteText(ctx, fmt.Sprintf("/admin/users/%d/delete", userID))
}

// AdminCars calls GET /admin/cars
func (c *Client) AdminCars(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.getJSON(ctx, "/admin/cars", &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// AdminDeleteCar calls DELETE /admin/cars/{id}/delete
func (c *Client) AdminDeleteCar(ctx context.Context, carID int64) (string, error) {
	return c.deleteText(ctx, fmt.Sprintf("/admin/cars/%d/delete", carID))
}

// AdminNews calls GET /admin/news
func (c *Client) AdminNews(ctx context.Context) ([]News, error) {
	var news []News
	if err := c.getJSON(ctx, "/admin/news", &news); err != nil {
		return nil, err
	}
	return news, nil
}

// ModeratorNews calls GET /moderator/news
func (c *Client) ModeratorNews(ctx context.Context) ([]News, error) {
	var news []News
	if err := c.getJSON(ctx, "/moderator/news", &news); err != nil {
		return nil, err
	}
	return news, nil
}

// ModeratorAddNews calls POST /moderator/news/add
func (c *Client) ModeratorAddNews(ctx context.Context, input NewsInput) (*News, error) {
	var created News
	if err := c.postJSON(ctx, "/moderator/news/add", input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ModeratorDeleteNews calls DELETE /moderator/news/{id}/delete
func (c *Client) ModeratorDeleteNews(ctx context.Context, newsID int64) (string, error) {
	return c.deleteText(ctx, fmt.Sprintf("/moderator/news/%d/delete", newsID))
}
