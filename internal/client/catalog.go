// ABOUTME: Catalog, news and favorites endpoints of the Car Portal backend
// ABOUTME: Typed wrappers over the public and signed-in read APIs

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Car is a catalog listing
type Car struct {
	ID          int64   `json:"id"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Available   bool    `json:"isAvailable"`
	SellerID    int64   `json:"sellerId,omitempty"`
	SellerName  string  `json:"sellerName,omitempty"`
}

// News is a news article
type News struct {
	ID      int64  `json:"id"`
	Author  string `json:"author"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// Catalog calls GET /cars/catalog
func (c *Client) Catalog(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.getJSON(ctx, "/cars/catalog", &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// Car calls GET /cars/{id}
func (c *Client) Car(ctx context.Context, id int64) (*Car, error) {
	var car Car
	if err := c.getJSON(ctx, fmt.Sprintf("/cars/%d", id), &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// CarsByBrand calls GET /cars/brand/{brand}
func (c *Client) CarsByBrand(ctx context.Context, brand string) ([]Car, error) {
	var cars []Car
	if err := c.getJSON(ctx, "/cars/brand/"+url.PathEscape(brand), &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// CarsByPrice calls GET /cars/price-range
func (c *Client) CarsByPrice(ctx context.Context, minPrice, maxPrice float64) ([]Car, error) {
	q := url.Values{}
	q.Set("minPrice", strconv.FormatFloat(minPrice, 'f', -1, 64))
	q.Set("maxPrice", strconv.FormatFloat(maxPrice, 'f', -1, 64))

	var cars []Car
	if err := c.getJSON(ctx, "/cars/price-range", &cars, WithQuery(q)); err != nil {
		return nil, err
	}
	return cars, nil
}

// NewsList calls GET /news
func (c *Client) NewsList(ctx context.Context) ([]News, error) {
	var news []News
	if err := c.getJSON(ctx, "/news", &news); err != nil {
		return nil, err
	}
	return news, nil
}

// NewsItem calls GET /news/{id}
func (c *Client) NewsItem(ctx context.Context, id int64) (*News, error) {
	var item News
	if err := c.getJSON(ctx, fmt.Sprintf("/news/%d", id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// SearchNews calls GET /news/search?keyword=
func (c *Client) SearchNews(ctx context.Context, keyword string) ([]News, error) {
	var news []News
	if err := c.getJSON(ctx, "/news/search", &news, WithQuery(url.Values{"keyword": {keyword}})); err != nil {
		return nil, err
	}
	return news, nil
}

// Favorites calls GET /favorites
func (c *Client) Favorites(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.getJSON(ctx, "/favorites", &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// AddFavorite calls POST /favorites/add/{carId}
func (c *Client) AddFavorite(ctx context.Context, carID int64) (string, error) {
	resp, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("/favorites/add/%d", carID), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// RemoveFavorite calls DELETE /favorites/remove/{carId}
func (c *Client) RemoveFavorite(ctx context.Context, carID int64) (string, error) {
	return c.deleteText(ctx, fmt.Sprintf("/favorites/remove/%d", carID))
}

// IsFavorite calls GET /favorites/check/{carId}
func (c *Client) IsFavorite(ctx context.Context, carID int64) (bool, error) {
	var fav bool
	if err := c.getJSON(ctx, fmt.Sprintf("/favorites/check/%d", carID), &fav); err != nil {
		return false, err
	}
	return fav, nil
}
