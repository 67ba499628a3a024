package realm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shrinex/warden/authc"
)

const (
	// the default lookup resolves aliases to their canonical principal
	defaultAccountQuery = `SELECT principal, credentials, locked FROM accounts
WHERE principal = $1
   OR principal = (SELECT principal FROM account_aliases WHERE alias = $1)`
	defaultAliasQuery   = `SELECT alias FROM account_aliases WHERE principal = $1 ORDER BY alias`
)

type (
	// PostgresConfig overrides the queries the realm issues.
	// AccountQuery must yield (principal text, credentials text,
	// locked boolean) for one positional principal argument.
	// AliasQuery, when non-empty, yields additional principal rows
	PostgresConfig struct {
		AccountQuery string
		AliasQuery   string
	}

	// PostgresRealm resolves accounts from a Postgres store.
	// The pool is owned by the caller; the realm never closes it
	PostgresRealm struct {
		name    string
		pool    *pgxpool.Pool
		matcher authc.CredentialsMatcher
		config  PostgresConfig
	}
)

var _ authc.Realm = (*PostgresRealm)(nil)

func NewPostgresRealm(name string, pool *pgxpool.Pool, matcher authc.CredentialsMatcher) *PostgresRealm {
	return NewPostgresRealmWith(name, pool, matcher, PostgresConfig{})
}

func NewPostgresRealmWith(name string, pool *pgxpool.Pool, matcher authc.CredentialsMatcher, config PostgresConfig) *PostgresRealm {
	if len(config.AccountQuery) == 0 {
		config.AccountQuery = defaultAccountQuery
		if len(config.AliasQuery) == 0 {
			config.AliasQuery = defaultAliasQuery
		}
	}

	return &PostgresRealm{
		name:    name,
		pool:    pool,
		matcher: matcher,
		config:  config,
	}
}

func (r *PostgresRealm) Name() string {
	return r.name
}

func (r *PostgresRealm) Supports(token authc.Token) bool {
	_, ok := token.(*authc.UsernamePasswordToken)
	return ok
}

func (r *PostgresRealm) LoadAccount(ctx context.Context, token authc.Token) (*authc.AccountInfo, error) {
	account := &authc.AccountInfo{Realm: r.name}

	var principal string
	err := r.pool.QueryRow(ctx, r.config.AccountQuery, token.Principal()).
		Scan(&principal, &account.Credentials, &account.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authc.ErrUnknownAccount
		}
		return nil, fmt.Errorf("realm %s: load account: %w", r.name, err)
	}
	account.Principals = []string{principal}

	if len(r.config.AliasQuery) != 0 {
		aliases, err := r.loadAliases(ctx, principal)
		if err != nil {
			return nil, err
		}
		account.Principals = append(account.Principals, aliases...)
	}

	return account, nil
}

func (r *PostgresRealm) CredentialsMatch(ctx context.Context, token authc.Token, account *authc.AccountInfo) (bool, error) {
	return r.matcher.Match(ctx, token.Credentials(), account.Credentials)
}

func (r *PostgresRealm) loadAliases(ctx context.Context, principal string) ([]string, error) {
	rows, err := r.pool.Query(ctx, r.config.AliasQuery, principal)
	if err != nil {
		return nil, fmt.Errorf("realm %s: load aliases: %w", r.name, err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, fmt.Errorf("realm %s: scan alias: %w", r.name, err)
		}
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("realm %s: load aliases: %w", r.name, err)
	}

	return aliases, nil
}
