// people.go — разрешение ID пользователей в отображаемые профили.
// Профили кэшируются в LRU с TTL (hashicorp/golang-lru/v2/expirable):
// дела и доказательства ссылаются на одних и тех же людей многократно.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/repository"
)

// PeopleResolver — профили пользователей с кэшированием.
type PeopleResolver struct {
	users repository.UserRepository
	cache *expirable.LRU[string, model.Profile]
}

// NewPeopleResolver создаёт резолвер с кэшем на maxSize записей и временем жизни ttl.
func NewPeopleResolver(users repository.UserRepository, maxSize int, ttl time.Duration) *PeopleResolver {
	return &PeopleResolver{
		users: users,
		cache: expirable.NewLRU[string, model.Profile](maxSize, nil, ttl),
	}
}

// Resolve возвращает профили для ids. Отсутствующие в БД ID в результат не попадают.
func (p *PeopleResolver) Resolve(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	result := make(map[string]model.Profile, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if profile, ok := p.cache.Get(id); ok {
			profileCacheHitsTotal.Inc()
			result[id] = profile
			continue
		}
		profileCacheMissesTotal.Inc()
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return result, nil
	}

	users, err := p.users.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("получение профилей: %w", err)
	}
	for _, u := range users {
		profile := u.Profile()
		p.cache.Add(u.ID, profile)
		result[u.ID] = profile
	}
	return result, nil
}

// Remember кладёт профиль в кэш (после регистрации пользователя).
func (p *PeopleResolver) Remember(profile model.Profile) {
	p.cache.Add(profile.ID, profile)
}

// profileOf возвращает профиль из карты или профиль только с ID.
func profileOf(profiles map[string]model.Profile, id string) model.Profile {
	if profile, ok := profiles[id]; ok {
		return profile
	}
	return model.Profile{ID: id}
}

// optionalProfile — profileOf для необязательных ссылок.
func optionalProfile(profiles map[string]model.Profile, id *string) *model.Profile {
	if id == nil {
		return nil
	}
	profile := profileOf(profiles, *id)
	return &profile
}
