package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/moonbaby-storefront/internal/domain"
)

const (
	AnalyticsCollection = "analytics"
	VisitorsDoc         = "visitors"
)

// VisitorCounterFS увеличивает analytics/visitors.count в транзакции Firestore.
type VisitorCounterFS struct {
	Client *firestore.Client
}

func NewVisitorCounterFS(client *firestore.Client) *VisitorCounterFS {
	return &VisitorCounterFS{Client: client}
}

func (c *VisitorCounterFS) Bump(ctx context.Context) (int64, error) {
	if c.Client == nil {
		return 0, errors.New("firestore client is nil")
	}
	ref := c.Client.Collection(AnalyticsCollection).Doc(VisitorsDoc)

	var next int64
	err := c.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		var current int64
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			current, err = countOf(snap)
			if err != nil {
				return err
			}
		}
		next = current + 1
		return tx.Set(ref, map[string]interface{}{"count": next}, firestore.MergeAll)
	}, firestore.MaxAttempts(5))
	if err != nil {
		return 0, fmt.Errorf("bump visitors: %w", err)
	}
	return next, nil
}

func countOf(snap *firestore.DocumentSnapshot) (int64, error) {
	v, err := snap.DataAt("count")
	if err != nil {
		// документ есть, поля нет
		return 0, nil
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("visitors.count has type %T", v)
	}
}

var _ domain.VisitorCounter = (*VisitorCounterFS)(nil)
