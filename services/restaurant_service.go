package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"DineLine/models"
	"DineLine/utils"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	restaurantsCollection = "restaurants"
	menuCollection        = "menu"
	warmUpConcurrency     = 8
)

// RestaurantService reads restaurant profiles and keeps their menu indexes in
// step with Firestore.
type RestaurantService struct {
	FirestoreClient *firestore.Client
	registry        *MenuRegistry
	logger          *slog.Logger

	mu    sync.RWMutex
	names map[string]models.Restaurant
}

func NewRestaurantService(client *firestore.Client, registry *MenuRegistry, logger *slog.Logger) *RestaurantService {
	return &RestaurantService{
		FirestoreClient: client,
		registry:        registry,
		logger:          logger,
		names:           make(map[string]models.Restaurant),
	}
}

func (s *RestaurantService) restaurants() *firestore.CollectionRef {
	return s.FirestoreClient.Collection(restaurantsCollection)
}

// GetRestaurant returns the restaurant profile, cached after the first read.
func (s *RestaurantService) GetRestaurant(ctx context.Context, restaurantID string) (models.Restaurant, error) {
	s.mu.RLock()
	r, ok := s.names[restaurantID]
	s.mu.RUnlock()
	if ok {
		return r, nil
	}

	doc, err := s.restaurants().Doc(restaurantID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.Restaurant{}, fmt.Errorf("%w: %s", utils.ErrRestaurantNotFound, restaurantID)
		}
		return models.Restaurant{}, err
	}
	if err := doc.DataTo(&r); err != nil {
		return models.Restaurant{}, err
	}
	r.ID = doc.Ref.ID

	s.mu.Lock()
	s.names[restaurantID] = r
	s.mu.Unlock()
	return r, nil
}

func (s *RestaurantService) ListRestaurantIDs(ctx context.Context) ([]string, error) {
	refs, err := s.restaurants().DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	return ids, nil
}

// LoadMenu reads the stored catalog of a restaurant.
func (s *RestaurantService) LoadMenu(ctx context.Context, restaurantID string) ([]models.MenuIndexEntry, error) {
	iter := s.restaurants().Doc(restaurantID).Collection(menuCollection).Documents(ctx)
	defer iter.Stop()

	var items []models.MenuIndexEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var item models.MenuIndexEntry
		if err := doc.DataTo(&item); err != nil {
			s.logger.Warn("skipping malformed menu item", "restaurant_id", restaurantID, "doc", doc.Ref.ID, "error", err)
			continue
		}
		if item.ID == "" {
			item.ID = doc.Ref.ID
		}
		items = append(items, item)
	}
	return items, nil
}

// SyncMenu reloads the restaurant's index from Firestore. Matching continues
// against the previous index until the new one is swapped in.
func (s *RestaurantService) SyncMenu(ctx context.Context, restaurantID string) (models.MenuSyncResult, error) {
	items, err := s.LoadMenu(ctx, restaurantID)
	if err != nil {
		return models.MenuSyncResult{}, fmt.Errorf("load menu of %s: %w", restaurantID, err)
	}
	matcher := s.registry.Matcher(restaurantID)
	matcher.LoadMenu(items)
	s.logger.Info("menu synced", "restaurant_id", restaurantID, "items", matcher.Size())
	return models.MenuSyncResult{RestaurantID: restaurantID, Items: matcher.Size()}, nil
}

// SaveMenu replaces the stored catalog with items and then swaps the index.
func (s *RestaurantService) SaveMenu(ctx context.Context, restaurantID string, items []models.MenuIndexEntry) (models.MenuSyncResult, error) {
	if _, err := s.GetRestaurant(ctx, restaurantID); err != nil {
		return models.MenuSyncResult{}, err
	}
	menu := s.restaurants().Doc(restaurantID).Collection(menuCollection)

	existing, err := menu.DocumentRefs(ctx).GetAll()
	if err != nil {
		return models.MenuSyncResult{}, err
	}
	keep := make(map[string]bool, len(items))
	for i := range items {
		items[i].ID = strings.TrimSpace(items[i].ID)
		if items[i].ID == "" {
			return models.MenuSyncResult{}, utils.NewCustomError(http.StatusBadRequest, "every menu item needs an id")
		}
		keep[items[i].ID] = true
	}

	bw := s.FirestoreClient.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for _, ref := range existing {
		if keep[ref.ID] {
			continue
		}
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return models.MenuSyncResult{}, err
		}
		jobs = append(jobs, job)
	}
	for _, item := range items {
		job, err := bw.Set(menu.Doc(item.ID), item)
		if err != nil {
			bw.End()
			return models.MenuSyncResult{}, err
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return models.MenuSyncResult{}, fmt.Errorf("write menu of %s: %w", restaurantID, err)
		}
	}

	matcher := s.registry.Matcher(restaurantID)
	matcher.LoadMenu(items)
	s.logger.Info("menu replaced", "restaurant_id", restaurantID, "items", matcher.Size())
	return models.MenuSyncResult{RestaurantID: restaurantID, Items: matcher.Size()}, nil
}

// WarmMenus indexes every restaurant's menu concurrently. A restaurant that
// fails to load is logged and left with an empty index.
func (s *RestaurantService) WarmMenus(ctx context.Context) error {
	ids, err := s.ListRestaurantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list restaurants: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(warmUpConcurrency)
	for _, id := range ids {
		eg.Go(func() error {
			if _, err := s.SyncMenu(ctx, id); err != nil {
				s.logger.Error("menu warm-up failed", "restaurant_id", id, "error", err)
			}
			return ctx.Err()
		})
	}
	return eg.Wait()
}
