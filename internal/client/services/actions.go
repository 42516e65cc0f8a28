// Package services adapts the backend client to the operations the client
// controller needs. Wallet registrations fall back to a signed challenge
// when the server asks for a proof.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dtodo/internal/client/client"
	"github.com/dmitrijs2005/dtodo/internal/client/models"
	"github.com/dmitrijs2005/dtodo/internal/client/providers"
)

// TaskActions implements the controller's actions on top of client.Client.
type TaskActions struct {
	client client.Client
	signer providers.Signer
}

// NewTaskActions builds the adapter. signer may be nil for identity schemes
// that carry no proof.
func NewTaskActions(c client.Client, signer providers.Signer) *TaskActions {
	return &TaskActions{client: c, signer: signer}
}

// RegisterUser resolves identityKey. When the server rejects a bare wallet
// registration and a signer is available, the key signs a fresh challenge
// and the registration is retried once with that proof.
func (a *TaskActions) RegisterUser(ctx context.Context, identityKey string) (*models.User, error) {
	user, err := a.client.RegisterUser(ctx, identityKey, nil)
	if err == nil || a.signer == nil || !errors.Is(err, client.ErrUnauthorized) {
		return user, err
	}

	proof, err := a.prove(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	return a.client.RegisterUser(ctx, identityKey, proof)
}

func (a *TaskActions) prove(ctx context.Context, identityKey string) (*models.WalletProof, error) {
	token, message, err := a.client.Challenge(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	sig, err := a.signer.Sign(ctx, identityKey, message)
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}
	return &models.WalletProof{ChallengeToken: token, Signature: sig}, nil
}

func (a *TaskActions) FetchTasks(ctx context.Context, identityKey string) ([]*models.Task, error) {
	return a.client.FetchTasks(ctx, identityKey)
}

func (a *TaskActions) AddTask(ctx context.Context, identityKey, text string) (*models.Task, error) {
	return a.client.AddTask(ctx, identityKey, text)
}

func (a *TaskActions) CompleteTask(ctx context.Context, identityKey string, taskID int64) error {
	return a.client.CompleteTask(ctx, identityKey, taskID)
}

func (a *TaskActions) ExportTasks(ctx context.Context, identityKey string) (*models.Export, error) {
	return a.client.ExportTasks(ctx, identityKey)
}

func (a *TaskActions) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// ClearSession drops the tokens of the previous identity.
func (a *TaskActions) ClearSession() {
	a.client.ClearSession()
}
