package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"amlguard/internal/registry/models"
	"amlguard/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func entity(id, regNum string) *models.Entity {
	return &models.Entity{
		ID:                 id,
		RegistrationNumber: regNum,
		Name:               "Entity " + id,
		Type:               models.TypeBank,
		Status:             models.StatusPending,
		License:            models.License{Number: "LIC-" + id},
		Notes:              []models.Note{},
		History:            []models.HistoryEvent{{ID: "h-" + id, Action: models.ActionRegistered}},
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *InMemorySuite) TestCreateRejectsDuplicateRegistrationNumber() {
	s.Require().NoError(s.store.Create(s.ctx, entity("a", "REG-1")))

	err := s.store.Create(s.ctx, entity("b", " reg-1 "))

	s.Require().ErrorIs(err, sentinel.ErrConflict)
	all, _ := s.store.ListAll(s.ctx)
	s.Len(all, 1)
}

func (s *InMemorySuite) TestFindByIDMissing() {
	_, err := s.store.FindByID(s.ctx, "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestReadsReturnCopies() {
	s.Require().NoError(s.store.Create(s.ctx, entity("a", "REG-1")))

	got, err := s.store.FindByID(s.ctx, "a")
	s.Require().NoError(err)
	got.Name = "mutated"
	got.History[0].Details = "mutated"

	again, _ := s.store.FindByID(s.ctx, "a")
	s.Equal("Entity a", again.Name)
	s.Empty(again.History[0].Details)
}

func (s *InMemorySuite) TestListAllKeepsInsertionOrder() {
	for i := range 3 {
		s.Require().NoError(s.store.Create(s.ctx, entity(fmt.Sprint(i), fmt.Sprintf("REG-%d", i))))
	}
	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"0", "1", "2"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func (s *InMemorySuite) TestExecuteFailureLeavesStoreUnchanged() {
	s.Require().NoError(s.store.Create(s.ctx, entity("a", "REG-1")))
	before, _ := s.store.FindByID(s.ctx, "a")
	rejected := errors.New("rejected")

	_, err := s.store.Execute(s.ctx, "a",
		func(e *models.Entity) error {
			e.Name = "half-applied"
			return rejected
		},
		func(e *models.Entity) { e.Status = models.StatusActive },
	)

	s.Require().ErrorIs(err, rejected)
	after, _ := s.store.FindByID(s.ctx, "a")
	s.Equal(before, after)
}

func (s *InMemorySuite) TestExecuteMissingEntity() {
	_, err := s.store.Execute(s.ctx, "nope",
		func(*models.Entity) error { return nil },
		func(*models.Entity) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestExecuteSerializesWriters() {
	s.Require().NoError(s.store.Create(s.ctx, entity("a", "REG-1")))

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, "a",
				func(*models.Entity) error { return nil },
				func(e *models.Entity) {
					e.History = append(e.History, models.HistoryEvent{ID: fmt.Sprint(i)})
				},
			)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, _ := s.store.FindByID(s.ctx, "a")
	s.Len(got.History, writers+1)
}
