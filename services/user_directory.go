package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type UserContact struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Phone string    `json:"phone,omitempty"`
}

// UserDirectory resolves contact info for the charge request.
type UserDirectory interface {
	GetContact(ctx context.Context, userID uuid.UUID) (*UserContact, error)
}

type httpUserDirectory struct {
	baseURL string
	client  *http.Client
}

func NewUserDirectory(baseURL string) UserDirectory {
	return &httpUserDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *httpUserDirectory) GetContact(ctx context.Context, userID uuid.UUID) (*UserContact, error) {
	url := fmt.Sprintf("%s/users/internal/%s/contact", d.baseURL, userID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var contact UserContact
	if err := json.NewDecoder(resp.Body).Decode(&contact); err != nil {
		return nil, err
	}
	return &contact, nil
}
