package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/teambuilder/internal/db"
)

var userColumns = []any{"email", "has_team", "skills", "prizes", "bio", "github", "pending_teams"}

type User struct {
	Email        string   `db:"email"`
	HasTeam      bool     `db:"has_team"`
	Skills       []string `db:"skills"`
	Prizes       []string `db:"prizes"`
	Bio          string   `db:"bio"`
	Github       string   `db:"github"`
	PendingTeams []string `db:"pending_teams"`
}

type UserPatch struct {
	Email  string    `db:"email"`
	Skills *[]string `db:"skills"`
	Prizes *[]string `db:"prizes"`
	Bio    *string   `db:"bio"`
	Github *string   `db:"github"`
}

// UserFilter is an equality/containment predicate over users. Zero fields are ignored.
type UserFilter struct {
	HasTeam *bool
	Skill   string
	Prize   string
}

type UserRepository interface {
	Get(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	Patch(ctx context.Context, patch *UserPatch) (*User, error)
	// SetHasTeam flips has_team to the given value and fails with ErrConflict if it already had it.
	SetHasTeam(ctx context.Context, email string, hasTeam bool) error
	AddPendingTeam(ctx context.Context, teamID string, emails []string) error
	// RemovePendingTeam drops teamID from the listed users, or from every user when none are listed.
	RemovePendingTeam(ctx context.Context, teamID string, emails ...string) error
	SetPendingTeams(ctx context.Context, teamIDs []string, emails []string) error
	Find(ctx context.Context, filter *UserFilter) ([]*User, error)
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgxUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgxUserRepository{pool: pool}
}

func (p *pgxUserRepository) Get(ctx context.Context, email string) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(userColumns...),
		sm.From("users"),
		sm.Where(psql.Quote("email").EQ(psql.Arg(email))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p *pgxUserRepository) Create(ctx context.Context, user *User) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("users", "email", "has_team", "skills", "prizes", "bio", "github", "pending_teams"),
		im.Values(
			psql.Arg(user.Email),
			psql.Arg(user.HasTeam),
			psql.Arg(nonNil(user.Skills)),
			psql.Arg(nonNil(user.Prizes)),
			psql.Arg(user.Bio),
			psql.Arg(user.Github),
			psql.Arg(nonNil(user.PendingTeams)),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxUserRepository) Patch(ctx context.Context, patch *UserPatch) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 4)

	if patch.Skills != nil {
		sets = append(sets, um.SetCol("skills").ToArg(nonNil(*patch.Skills)))
	}
	if patch.Prizes != nil {
		sets = append(sets, um.SetCol("prizes").ToArg(nonNil(*patch.Prizes)))
	}
	if patch.Bio != nil {
		sets = append(sets, um.SetCol("bio").ToArg(*patch.Bio))
	}
	if patch.Github != nil {
		sets = append(sets, um.SetCol("github").ToArg(*patch.Github))
	}

	if len(sets) == 0 {
		return p.Get(ctx, patch.Email)
	}

	q := psql.Update(
		um.Table("users"),
		um.Where(psql.Quote("email").EQ(psql.Arg(patch.Email))),
		um.Returning(userColumns...),
	)

	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p *pgxUserRepository) SetHasTeam(ctx context.Context, email string, hasTeam bool) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("users"),
		um.SetCol("has_team").ToArg(hasTeam),
		um.Where(psql.Quote("email").EQ(psql.Arg(email))),
		um.Where(psql.Quote("has_team").EQ(psql.Arg(!hasTeam))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing changed: either the user is gone or a concurrent operation got there first.
	if _, err = p.Get(ctx, email); err != nil {
		return err
	}
	return ErrConflict
}

func (p *pgxUserRepository) AddPendingTeam(ctx context.Context, teamID string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}

	q := psql.Update(
		um.Table("users"),
		um.SetCol("pending_teams").To(psql.Raw("array_append(pending_teams, ?)", teamID)),
		um.Where(psql.Raw("email = ANY(?)", emails)),
		um.Where(psql.Raw("NOT (? = ANY(pending_teams))", teamID)),
	)
	return execQuery(ctx, db.GetPgxExecutorFromContext(ctx, p.pool), &q)
}

func (p *pgxUserRepository) RemovePendingTeam(ctx context.Context, teamID string, emails ...string) error {
	q := psql.Update(
		um.Table("users"),
		um.SetCol("pending_teams").To(psql.Raw("array_remove(pending_teams, ?)", teamID)),
		um.Where(psql.Raw("? = ANY(pending_teams)", teamID)),
	)
	if len(emails) > 0 {
		q.Apply(um.Where(psql.Raw("email = ANY(?)", emails)))
	}
	return execQuery(ctx, db.GetPgxExecutorFromContext(ctx, p.pool), &q)
}

func (p *pgxUserRepository) SetPendingTeams(ctx context.Context, teamIDs []string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}

	q := psql.Update(
		um.Table("users"),
		um.SetCol("pending_teams").ToArg(nonNil(teamIDs)),
		um.Where(psql.Raw("email = ANY(?)", emails)),
	)
	return execQuery(ctx, db.GetPgxExecutorFromContext(ctx, p.pool), &q)
}

func (p *pgxUserRepository) Find(ctx context.Context, filter *UserFilter) ([]*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(userColumns...),
		sm.From("users"),
		sm.OrderBy("email"),
	)

	if filter != nil {
		if filter.HasTeam != nil {
			q.Apply(sm.Where(psql.Quote("has_team").EQ(psql.Arg(*filter.HasTeam))))
		}
		if filter.Skill != "" {
			q.Apply(sm.Where(psql.Raw("? = ANY(skills)", filter.Skill)))
		}
		if filter.Prize != "" {
			q.Apply(sm.Where(psql.Raw("? = ANY(prizes)", filter.Prize)))
		}
	}

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*User, error) {
		return scanUser(row)
	})
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	if err := row.Scan(
		&u.Email,
		&u.HasTeam,
		&u.Skills,
		&u.Prizes,
		&u.Bio,
		&u.Github,
		&u.PendingTeams,
	); err != nil {
		return nil, err
	}
	return u, nil
}
