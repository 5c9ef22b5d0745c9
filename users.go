package linearql

// users.go implements the Users manager

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/andrewwphillips/linearql/internal/cache"
)

// userFetchers limits how many users All gets at the same time
const userFetchers = 8

// Users gets the users of the organization and finds users by email or name
type Users struct {
	client *Client
	byID   *cache.TTL[*User]
	list   *cache.TTL[[]User] // brief details (id, names, email) of every user
	me     *cache.TTL[*User]
	emails *nameIndex // ns "user/email"
	names  *nameIndex // ns "user/name"
}

func newUsers(c *Client) *Users {
	return &Users{
		client: c,
		byID:   newCache[*User](c, "user"),
		list:   newCache[[]User](c, "users"),
		me:     newCache[*User](c, "viewer"),
		emails: newNameIndex(c, "user/email"),
		names:  newNameIndex(c, "user/name"),
	}
}

// Get returns all the details of a user
func (u *Users) Get(ctx context.Context, id string) (*User, error) {
	return u.byID.GetOrLoad(id, func() (*User, error) {
		user, err := get[User](ctx, u.client, queryUser, map[string]interface{}{"id": id}, "user")
		if err != nil {
			return nil, fmt.Errorf("%w getting user %s", err, id)
		}
		u.remember(user)
		return user, nil
	})
}

// All returns every user with all their details, keyed by ID.  The details of each user
// are obtained concurrently.  Users whose details can't be obtained are left out (and logged).
func (u *Users) All(ctx context.Context) (map[string]*User, error) {
	list, err := u.brief(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	r := make(map[string]*User, len(list))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(userFetchers)
	for _, brief := range list {
		g.Go(func() error {
			user, err := u.Get(ctx, brief.ID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				u.client.logger.Warn().Err(err).Str("user", brief.ID).Msg("error getting user")
				return nil
			}
			mu.Lock()
			r[user.ID] = user
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// EmailMap returns the email address of every user, keyed by user ID
func (u *Users) EmailMap(ctx context.Context) (map[string]string, error) {
	list, err := u.brief(ctx)
	if err != nil {
		return nil, err
	}
	r := make(map[string]string, len(list))
	for _, user := range list {
		r[user.ID] = user.Email
	}
	return r, nil
}

// IDByEmail returns the ID of the user with the given email address, or ErrNotFound
func (u *Users) IDByEmail(ctx context.Context, email string) (string, error) {
	return u.emails.id("user/email", email, func() (map[string]string, error) {
		list, err := u.brief(ctx)
		if err != nil {
			return nil, err
		}
		ids := make(map[string]string, len(list))
		for _, user := range list {
			if user.Email != "" {
				ids[user.Email] = user.ID
			}
		}
		return ids, nil
	})
}

// IDByName returns the ID of the user matching name.  The name (or display name) of each user is
// compared exactly, then ignoring case, then looking for name as a substring (ignoring case).
func (u *Users) IDByName(ctx context.Context, name string) (string, error) {
	return u.names.id("user/name", name, func() (map[string]string, error) {
		list, err := u.brief(ctx)
		if err != nil {
			return nil, err
		}
		if user := matchUser(list, name); user != nil {
			return map[string]string{name: user.ID}, nil
		}
		return nil, fmt.Errorf("%w: no user matching %q", ErrNotFound, name)
	})
}

// Me returns the user that the API key belongs to
func (u *Users) Me(ctx context.Context) (*User, error) {
	return u.me.GetOrLoad("", func() (*User, error) {
		user, err := get[User](ctx, u.client, queryViewer, nil, "viewer")
		if err != nil {
			return nil, fmt.Errorf("%w getting current user", err)
		}
		u.byID.Set(user.ID, user)
		u.remember(user)
		return user, nil
	})
}

// InvalidateCache forgets all users (including names and emails in the store)
func (u *Users) InvalidateCache() {
	u.byID.Clear()
	u.list.Clear()
	u.me.Clear()
	u.emails.clear()
	u.names.clear()
}

// brief gets the ID, names and email of every user
func (u *Users) brief(ctx context.Context) ([]User, error) {
	return u.list.GetOrLoad("", func() ([]User, error) {
		list, err := collect[User](ctx, u.client, queryUsers, nil, "users")
		if err != nil {
			return nil, fmt.Errorf("%w getting users", err)
		}
		return list, nil
	})
}

// remember adds the email and names of a user to the indexes
func (u *Users) remember(user *User) {
	if user.Email != "" {
		u.emails.add("user/email", map[string]string{user.Email: user.ID})
	}
	names := make(map[string]string, 2)
	if user.Name != "" {
		names[user.Name] = user.ID
	}
	if user.DisplayName != "" {
		names[user.DisplayName] = user.ID
	}
	u.names.add("user/name", names)
}

// matchUser finds the first user whose name or display name matches exactly, then
// case-insensitively, then as a case-insensitive substring
func matchUser(users []User, name string) *User {
	lower := strings.ToLower(name)
	matchers := []func(string) bool{
		func(s string) bool { return s == name },
		func(s string) bool { return strings.ToLower(s) == lower },
		func(s string) bool { return lower != "" && strings.Contains(strings.ToLower(s), lower) },
	}
	for _, match := range matchers {
		for i := range users {
			if match(users[i].Name) || match(users[i].DisplayName) {
				return &users[i]
			}
		}
	}
	return nil
}
