package remote

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/marcus/roster/internal/models"
)

// Retrying wraps a client with exponential backoff on transient failures.
// It presents the same call surface, so callers that want retry semantics
// swap it in without any contract change.
type Retrying struct {
	Inner       *Client
	MaxElapsed  time.Duration
	MaxInterval time.Duration
}

// NewRetrying wraps inner with default backoff limits.
func NewRetrying(inner *Client) *Retrying {
	return &Retrying{
		Inner:       inner,
		MaxElapsed:  30 * time.Second,
		MaxInterval: 5 * time.Second,
	}
}

func (r *Retrying) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.MaxElapsed
	b.MaxInterval = r.MaxInterval
	return b
}

// permanent stops retries for error classes a retry cannot fix.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound):
		return backoff.Permanent(err)
	}
	return err
}

// FetchPage retries the underlying fetch until it succeeds or backoff gives up.
func (r *Retrying) FetchPage(page int) ([]models.User, int, error) {
	var users []models.User
	var totalPages int
	err := backoff.Retry(func() error {
		var err error
		users, totalPages, err = r.Inner.FetchPage(page)
		return permanent(err)
	}, r.policy())
	return users, totalPages, err
}

// FetchAllWithTotalCount retries the underlying full fetch.
func (r *Retrying) FetchAllWithTotalCount() ([]models.User, int, error) {
	var users []models.User
	var total int
	err := backoff.Retry(func() error {
		var err error
		users, total, err = r.Inner.FetchAllWithTotalCount()
		return permanent(err)
	}, r.policy())
	return users, total, err
}

// Create retries the underlying create.
func (r *Retrying) Create(name, job string) error {
	return backoff.Retry(func() error {
		return permanent(r.Inner.Create(name, job))
	}, r.policy())
}

// Update retries the underlying update.
func (r *Retrying) Update(id int, name, job string) error {
	return backoff.Retry(func() error {
		return permanent(r.Inner.Update(id, name, job))
	}, r.policy())
}

// Delete retries the underlying delete.
func (r *Retrying) Delete(id int) error {
	return backoff.Retry(func() error {
		return permanent(r.Inner.Delete(id))
	}, r.policy())
}
