package storage

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

func setupTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := NewBadgerStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// stores returns a fresh instance of every implementation.
func stores(t *testing.T) map[string]ActivityStore {
	return map[string]ActivityStore{
		"badger": setupTestStore(t),
		"memory": NewMemoryStore(),
	}
}

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func newActivity(id, farmer string, daysAgo int) *models.Activity {
	return &models.Activity{
		ID:          id,
		FarmerID:    farmer,
		Type:        models.ActivityIrrigation,
		Crop:        "Rice",
		Description: "Flooded the field",
		Location:    &models.Location{Lat: 10.5, Lon: 76.2},
		Date:        day.AddDate(0, 0, -daysAgo),
		CreatedAt:   day,
	}
}

func TestStore_ActivityCRUD(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := newActivity("act-1", "farmer-1", 0)
			if err := store.CreateActivity(a); err != nil {
				t.Fatalf("CreateActivity failed: %v", err)
			}
			if err := store.CreateActivity(a); !errors.Is(err, models.ErrActivityAlreadyExists) {
				t.Errorf("expected ErrActivityAlreadyExists, got %v", err)
			}

			got, err := store.GetActivity("act-1")
			if err != nil {
				t.Fatalf("GetActivity failed: %v", err)
			}
			if got.FarmerID != "farmer-1" || got.Location == nil || got.Location.Lat != 10.5 || !got.Date.Equal(a.Date) {
				t.Errorf("unexpected activity %+v", got)
			}

			if err := store.DeleteActivity("act-1"); err != nil {
				t.Fatalf("DeleteActivity failed: %v", err)
			}
			if _, err := store.GetActivity("act-1"); !errors.Is(err, models.ErrActivityNotFound) {
				t.Errorf("expected ErrActivityNotFound after delete, got %v", err)
			}
			if err := store.DeleteActivity("act-1"); !errors.Is(err, models.ErrActivityNotFound) {
				t.Errorf("expected ErrActivityNotFound on second delete, got %v", err)
			}
			if _, total, _ := store.ListActivities("farmer-1", 0, 0); total != 0 {
				t.Errorf("farmer index still lists %d activities", total)
			}
		})
	}
}

func TestStore_ListActivities(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				if err := store.CreateActivity(newActivity(fmt.Sprintf("a-%d", i), "farmer-1", i)); err != nil {
					t.Fatal(err)
				}
			}
			if err := store.CreateActivity(newActivity("b-0", "farmer-2", 0)); err != nil {
				t.Fatal(err)
			}
			if err := store.CreateActivity(newActivity("c-0", "farmer-1/x", 0)); err != nil {
				t.Fatal(err)
			}

			list, total, err := store.ListActivities("farmer-1", 0, 2)
			if err != nil {
				t.Fatalf("ListActivities failed: %v", err)
			}
			if total != 5 {
				t.Errorf("total = %d, want 5", total)
			}
			if len(list) != 2 || list[0].ID != "a-0" || list[1].ID != "a-1" {
				t.Errorf("first page = %v, want a-0, a-1", ids(list))
			}

			list, _, _ = store.ListActivities("farmer-1", 4, 2)
			if len(list) != 1 || list[0].ID != "a-4" {
				t.Errorf("last page = %v, want a-4", ids(list))
			}

			list, _, _ = store.ListActivities("farmer-1", 10, 2)
			if list == nil || len(list) != 0 {
				t.Errorf("out of range page = %v, want empty", ids(list))
			}

			list, _, _ = store.ListActivities("farmer-1", 1, math.MaxInt)
			if len(list) != 4 || list[0].ID != "a-1" {
				t.Errorf("unbounded limit = %v, want a-1..a-4", ids(list))
			}

			list, _, _ = store.ListActivities("farmer-1", math.MaxInt, 2)
			if list == nil || len(list) != 0 {
				t.Errorf("saturated offset = %v, want empty", ids(list))
			}

			_, total, _ = store.ListActivities("", 0, 0)
			if total != 7 {
				t.Errorf("total across farmers = %d, want 7", total)
			}
		})
	}
}

func TestBadgerStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBadgerStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateActivity(newActivity("persist", "farmer-1", 0)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewBadgerStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.GetActivity("persist"); err != nil {
		t.Errorf("activity lost after reopen: %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	a := newActivity("a", "f", 0)
	store.CreateActivity(a)
	a.Description = "changed"

	got, _ := store.GetActivity("a")
	if got.Description != "Flooded the field" {
		t.Error("store shares memory with caller")
	}
	got.Location.Lat = 0
	again, _ := store.GetActivity("a")
	if again.Location.Lat != 10.5 {
		t.Error("store shares location with caller")
	}
}

func ids(list []*models.Activity) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}
