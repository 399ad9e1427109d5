package services

import (
	"context"
	"fmt"
	"time"

	"DineLine/models"
	"DineLine/utils"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	callsCollection      = "calls"
	transcriptCollection = "transcript"
	defaultPageLimit     = 20
	maxPageLimit         = 100
)

// CallStore persists calls and their transcripts.
type CallStore interface {
	InitializeCall(ctx context.Context, call models.Call) error
	AppendTranscript(ctx context.Context, callID string, entry models.TranscriptEntry) error
	UpdateStatus(ctx context.Context, callID string, status models.CallStatus, state models.DialogState) error
	FinalizeCall(ctx context.Context, callID string, status models.CallStatus, dctx models.DialogContext, endedAt time.Time) (models.Call, error)
	GetCall(ctx context.Context, callID string) (models.Call, error)
	ListCalls(ctx context.Context, filter models.CallFilter) (models.CallPage, error)
	Stats(ctx context.Context, restaurantID string) (models.CallStats, error)
}

type FirestoreCallStore struct {
	FirestoreClient *firestore.Client
}

func NewFirestoreCallStore(client *firestore.Client) *FirestoreCallStore {
	return &FirestoreCallStore{FirestoreClient: client}
}

func (s *FirestoreCallStore) calls() *firestore.CollectionRef {
	return s.FirestoreClient.Collection(callsCollection)
}

func notFound(err error, callID string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", utils.ErrCallNotFound, callID)
	}
	return err
}

func (s *FirestoreCallStore) InitializeCall(ctx context.Context, call models.Call) error {
	if call.Status == "" {
		call.Status = models.CallInProgress
	}
	if call.Items == nil {
		call.Items = []models.OrderItem{}
	}
	_, err := s.calls().Doc(call.CallID).Set(ctx, call)
	return err
}

func (s *FirestoreCallStore) AppendTranscript(ctx context.Context, callID string, entry models.TranscriptEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, _, err := s.calls().Doc(callID).Collection(transcriptCollection).Add(ctx, entry)
	return err
}

func (s *FirestoreCallStore) UpdateStatus(ctx context.Context, callID string, callStatus models.CallStatus, state models.DialogState) error {
	_, err := s.calls().Doc(callID).Update(ctx, []firestore.Update{
		{Path: "status", Value: callStatus},
		{Path: "dialogState", Value: state},
	})
	return notFound(err, callID)
}

// FinalizeCall closes the call record with the final order and a duration
// computed from the stored start time.
func (s *FirestoreCallStore) FinalizeCall(ctx context.Context, callID string, callStatus models.CallStatus, dctx models.DialogContext, endedAt time.Time) (models.Call, error) {
	ref := s.calls().Doc(callID)
	var call models.Call
	err := s.FirestoreClient.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&call); err != nil {
			return err
		}
		ended := endedAt.UTC()
		call.Status = callStatus
		call.DialogState = dctx.State
		call.Language = dctx.Language
		call.CustomerPhone = dctx.CustomerPhone
		call.Items = dctx.Items
		if call.Items == nil {
			call.Items = []models.OrderItem{}
		}
		call.Subtotal = dctx.Subtotal
		call.EndedAt = &ended
		call.DurationSeconds = callDuration(call.StartedAt, ended)
		return tx.Set(ref, call)
	})
	if err != nil {
		return models.Call{}, notFound(err, callID)
	}
	return call, nil
}

func callDuration(start, end time.Time) int64 {
	if start.IsZero() || end.Before(start) {
		return 0
	}
	return int64(end.Sub(start).Seconds())
}

func (s *FirestoreCallStore) GetCall(ctx context.Context, callID string) (models.Call, error) {
	doc, err := s.calls().Doc(callID).Get(ctx)
	if err != nil {
		return models.Call{}, notFound(err, callID)
	}
	var call models.Call
	if err := doc.DataTo(&call); err != nil {
		return models.Call{}, err
	}
	return call, nil
}

// NormalizePage clamps page and limit to usable values.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (s *FirestoreCallStore) filtered(restaurantID string, callStatus models.CallStatus, from, to time.Time) firestore.Query {
	q := s.calls().Query
	if restaurantID != "" {
		q = q.Where("restaurantId", "==", restaurantID)
	}
	if callStatus != "" {
		q = q.Where("status", "==", callStatus)
	}
	if !from.IsZero() {
		q = q.Where("startedAt", ">=", from)
	}
	if !to.IsZero() {
		q = q.Where("startedAt", "<", to)
	}
	return q
}

// ListCalls returns one page of calls, newest first.
func (s *FirestoreCallStore) ListCalls(ctx context.Context, filter models.CallFilter) (models.CallPage, error) {
	page, limit := NormalizePage(filter.Page, filter.Limit)
	q := s.filtered(filter.RestaurantID, filter.Status, filter.From, filter.To).
		OrderBy("startedAt", firestore.Desc).
		Offset((page - 1) * limit).
		Limit(limit)

	out := models.CallPage{Calls: []models.Call{}, Page: page, Limit: limit}
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return models.CallPage{}, err
		}
		var call models.Call
		if err := doc.DataTo(&call); err != nil {
			return models.CallPage{}, err
		}
		out.Calls = append(out.Calls, call)
	}
	return out, nil
}

// Stats counts calls per status with server-side aggregation.
func (s *FirestoreCallStore) Stats(ctx context.Context, restaurantID string) (models.CallStats, error) {
	stats := models.CallStats{ByStatus: make(map[models.CallStatus]int64, len(models.CallStatuses))}
	for _, st := range models.CallStatuses {
		n, err := count(ctx, s.filtered(restaurantID, st, time.Time{}, time.Time{}))
		if err != nil {
			return models.CallStats{}, err
		}
		stats.ByStatus[st] = n
		stats.Total += n
	}
	return stats, nil
}

func count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected aggregation result %T", res["total"])
	}
	return v.GetIntegerValue(), nil
}
