package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/assassins-go/internal/model"
	"github.com/mcoot/assassins-go/internal/storage"
	"github.com/mcoot/assassins-go/internal/storage/storagetest"
)

func newMiniStorage(t *testing.T) (*miniredis.Miniredis, *Storage) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})
	cfg := DefaultConfig()
	cfg.GameTTL = time.Hour
	st := NewWithClient(client, cfg)
	t.Cleanup(func() { _ = st.Close() })
	return mini, st
}

func TestStorageContract(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage {
			_, st := newMiniStorage(t)
			return st
		},
	})
}

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini, s.storage = newMiniStorage(s.T())
	s.ctx = context.Background()
}

func (s *StorageSuite) TestGameKeysExpire() {
	s.Require().NoError(s.storage.SaveGame(s.ctx, &model.Game{ID: "g1", Name: "Spring", Status: model.GameStatusRegistration}))
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", GameID: "g1", UserID: "u1", Status: model.PlayerStatusAlive}))

	s.Equal(time.Hour, s.mini.TTL(gameKey("g1")))
	s.Equal(time.Hour, s.mini.TTL(playersKey("g1")))

	s.mini.FastForward(2 * time.Hour)
	_, err := s.storage.GetGame(s.ctx, "g1")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestWithGameTxConflictOnConcurrentWrite() {
	err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
		if _, err := tx.ListPlayers(s.ctx, "g1"); err != nil {
			return err
		}
		// A write outside the region lands on a watched key
		s.Require().NoError(s.storage.client.HSet(s.ctx, playersKey("g1"), "intruder", "{}").Err())
		return tx.SavePlayer(s.ctx, &model.Player{ID: "p1", GameID: "g1", UserID: "u1", Status: model.PlayerStatusAlive})
	})
	s.ErrorIs(err, model.ErrTxConflict)
	s.ErrorIs(err, model.ErrContention)
}

func (s *StorageSuite) TestWithGameTxDomainErrorAfterConcurrentWriteIsConflict() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", GameID: "g1", UserID: "u1", Status: model.PlayerStatusAlive}))

	err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
		if _, err := tx.GetPlayer(s.ctx, "g1", "p1"); err != nil {
			return err
		}
		s.Require().NoError(s.storage.client.HSet(s.ctx, assignmentsKey("g1"), "a1", "{}").Err())
		return model.ErrInvalidPlayerState
	})
	s.ErrorIs(err, model.ErrTxConflict)
	s.ErrorIs(err, model.ErrContention)
	s.NotErrorIs(err, model.ErrInvalidPlayerState)
}

func (s *StorageSuite) TestWithGameTxDomainErrorWithoutConcurrentWriteSurfaces() {
	err := s.storage.WithGameTx(s.ctx, "g1", func(tx storage.GameStore) error {
		if _, err := tx.ListPlayers(s.ctx, "g1"); err != nil {
			return err
		}
		return model.ErrInvalidPlayerState
	})
	s.ErrorIs(err, model.ErrInvalidPlayerState)
	s.NotErrorIs(err, model.ErrContention)
}
