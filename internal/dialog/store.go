package dialog

import (
	"sync"

	"github.com/akozlov/spendbot/internal/model"
)

const shardCount = 32

// userShard защищает свою часть пользователей отдельным мьютексом, чтобы
// диалоги разных пользователей не сериализовались об один общий замок.
type userShard struct {
	mu     sync.Mutex
	states map[int64]model.ConversationState
	turns  map[int64]*sync.Mutex
}

// Store хранит состояние диалога каждого пользователя в памяти процесса.
// После рестарта все пользователи начинают с idle.
type Store struct {
	shards [shardCount]userShard
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].states = make(map[int64]model.ConversationState)
		s.shards[i].turns = make(map[int64]*sync.Mutex)
	}
	return s
}

func (s *Store) shard(userID int64) *userShard {
	return &s.shards[uint64(userID)%shardCount]
}

// Get возвращает состояние пользователя; для неизвестного — свежий idle.
func (s *Store) Get(userID int64) model.ConversationState {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.states[userID]
}

func (s *Store) Set(userID int64, state model.ConversationState) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.states[userID] = state
}

func (s *Store) Clear(userID int64) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.states, userID)
}

// TurnLock возвращает мьютекс, сериализующий целые ходы диалога одного
// пользователя. Движок держит его весь ход, включая обращения к хранилищу;
// ходы разных пользователей идут параллельно.
func (s *Store) TurnLock(userID int64) *sync.Mutex {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	mu, ok := sh.turns[userID]
	if !ok {
		mu = &sync.Mutex{}
		sh.turns[userID] = mu
	}
	return mu
}

// Users возвращает снимок пользователей с сохраненным состоянием.
func (s *Store) Users() []int64 {
	var ids []int64
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id := range sh.states {
			ids = append(ids, id)
		}
		sh.mu.Unlock()
	}
	return ids
}
