package apiclient

import (
	"context"
	"net/http"
)

// News status values accepted upstream.
const (
	NewsDraft     = "draft"
	NewsPublished = "published"
	NewsArchived  = "archived"
)

// NewsInput is the body of a news post create call.
type NewsInput struct {
	Title            string `json:"title"`
	Content          string `json:"content"`
	Status           string `json:"status"`
	FeaturedImageURL string `json:"featured_image_url,omitempty"`
}

// OfficialInput is the body of a village official create call.
type OfficialInput struct {
	Name         string `json:"name"`
	Position     string `json:"position"`
	Bio          string `json:"bio,omitempty"`
	DisplayOrder int    `json:"display_order"`
	PhotoURL     string `json:"photo_url,omitempty"`
	HamletNumber *int   `json:"hamlet_number,omitempty"`
	HamletName   string `json:"hamlet_name,omitempty"`
	HamletID     *int   `json:"hamlet_id,omitempty"`
}

// HeroSliderInput is the body of a hero slide create call.
type HeroSliderInput struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle,omitempty"`
	MediaURL     string `json:"media_url"`
	MediaType    string `json:"media_type"`
	LinkURL      string `json:"link_url,omitempty"`
	LinkText     string `json:"link_text,omitempty"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// Created is the minimal response of a create call.
type Created struct {
	ID uint64 `json:"id"`
}

// CreateNews creates a news post.
func (c *Client) CreateNews(ctx context.Context, token string, in NewsInput) (*Created, error) {
	var out Created
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/posts", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOfficial creates a village official.
func (c *Client) CreateOfficial(ctx context.Context, token string, in OfficialInput) (*Created, error) {
	var out Created
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/officials", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateHeroSlider creates a hero slide.
func (c *Client) CreateHeroSlider(ctx context.Context, token string, in HeroSliderInput) (*Created, error) {
	var out Created
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/hero-sliders", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
