package handlers

import "time"

// CreateShortURLRequest is the request body for creating a short URL.
// Every field is optional at the schema level so a missing url is answered
// with 400 by the service rather than a schema error.
type CreateShortURLRequest struct {
	Body struct {
		URL       string `doc:"The URL to shorten"                     example:"https://example.com/very/long/path" json:"url,omitempty"       required:"false"`
		Validity  int    `doc:"Minutes the short link stays valid"     example:"30"                                 json:"validity,omitempty"  required:"false"`
		Shortcode string `doc:"Custom short code, must not be in use" example:"abc123"                              json:"shortcode,omitempty" required:"false"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Body struct {
		ShortLink string    `doc:"The full short URL"       example:"http://localhost:3000/shorturls/abc123" json:"shortlink"`
		Expiry    time.Time `doc:"When the short URL stops" example:"2025-01-01T12:30:00Z"                   json:"expiry"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Shortcode string `doc:"The short code" example:"abc123" path:"shortcode"`
}

// RedirectResponse redirects to the original URL.
type RedirectResponse struct {
	Status   int
	Location string `doc:"The original URL" header:"Location"`
}
