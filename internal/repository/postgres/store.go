package postgres

import "database/sql"

// Store bundles the repositories over one connection pool. It satisfies
// every service repository interface that spans users, friendships and
// records.
type Store struct {
	*OutreachRepo
	*UserRepo
	*FriendRepo
	*TemplateRepo
}

// NewStore creates all repositories over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		OutreachRepo: NewOutreachRepo(db),
		UserRepo:     NewUserRepo(db),
		FriendRepo:   NewFriendRepo(db),
		TemplateRepo: NewTemplateRepo(db),
	}
}
