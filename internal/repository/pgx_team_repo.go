package repository

import (
	"context"
	"strings"

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

var teamColumns = []any{
	"name", "members", "description", "wanted_skills", "prizes",
	"complete", "interested", "dissolved", "version",
}

type Team struct {
	Name         string   `db:"name"`
	Members      []string `db:"members"`
	Description  string   `db:"description"`
	WantedSkills []string `db:"wanted_skills"`
	Prizes       []string `db:"prizes"`
	Complete     bool     `db:"complete"`
	Interested   []string `db:"interested"`
	Dissolved    bool     `db:"dissolved"`
	Version      int64    `db:"version"`
}

// TeamFilter is an equality/containment predicate over teams. Zero fields are ignored.
type TeamFilter struct {
	// Open restricts to teams that are neither complete nor dissolved.
	Open        bool
	WantedSkill string
	Prize       string
	// Search is a case-insensitive substring over name, description, skills and prizes.
	Search string
}

type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, name string) (*Team, error)
	// GetByMember returns the live team listing email among its members.
	GetByMember(ctx context.Context, email string) (*Team, error)
	// Update writes team if its version is unchanged since it was read and bumps the version.
	Update(ctx context.Context, team *Team) error
	// RemoveInterest drops teamID from every team's interested set.
	RemoveInterest(ctx context.Context, teamID string) error
	Find(ctx context.Context, filter *TeamFilter) ([]*Team, error)
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

func (p *pgxTeamRepository) Create(ctx context.Context, team *Team) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	if team.Version == 0 {
		team.Version = 1
	}

	q := psql.Insert(
		im.Into("teams", "name", "members", "description", "wanted_skills", "prizes", "complete", "interested", "dissolved", "version"),
		im.Values(
			psql.Arg(team.Name),
			psql.Arg(nonNil(team.Members)),
			psql.Arg(team.Description),
			psql.Arg(nonNil(team.WantedSkills)),
			psql.Arg(nonNil(team.Prizes)),
			psql.Arg(team.Complete),
			psql.Arg(nonNil(team.Interested)),
			psql.Arg(team.Dissolved),
			psql.Arg(team.Version),
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

func (p *pgxTeamRepository) Get(ctx context.Context, name string) (*Team, error) {
	q := psql.Select(
		sm.Columns(teamColumns...),
		sm.From("teams"),
		sm.Where(psql.Quote("name").EQ(psql.Arg(name))),
	)
	return p.getOne(ctx, &q)
}

func (p *pgxTeamRepository) GetByMember(ctx context.Context, email string) (*Team, error) {
	q := psql.Select(
		sm.Columns(teamColumns...),
		sm.From("teams"),
		sm.Where(psql.Raw("? = ANY(members)", email)),
		sm.Where(psql.Quote("dissolved").EQ(psql.Arg(false))),
	)
	return p.getOne(ctx, &q)
}

func (p *pgxTeamRepository) getOne(ctx context.Context, q queryBuilder) (*Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	team, err := scanTeam(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (p *pgxTeamRepository) Update(ctx context.Context, team *Team) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("teams"),
		um.SetCol("members").ToArg(nonNil(team.Members)),
		um.SetCol("description").ToArg(team.Description),
		um.SetCol("wanted_skills").ToArg(nonNil(team.WantedSkills)),
		um.SetCol("prizes").ToArg(nonNil(team.Prizes)),
		um.SetCol("complete").ToArg(team.Complete),
		um.SetCol("interested").ToArg(nonNil(team.Interested)),
		um.SetCol("dissolved").ToArg(team.Dissolved),
		um.SetCol("version").To(psql.Raw("version + 1")),
		um.Where(psql.Quote("name").EQ(psql.Arg(team.Name))),
		um.Where(psql.Quote("version").EQ(psql.Arg(team.Version))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	team.Version++
	return nil
}

func (p *pgxTeamRepository) RemoveInterest(ctx context.Context, teamID string) error {
	q := psql.Update(
		um.Table("teams"),
		um.SetCol("interested").To(psql.Raw("array_remove(interested, ?)", teamID)),
		um.SetCol("version").To(psql.Raw("version + 1")),
		um.Where(psql.Raw("? = ANY(interested)", teamID)),
	)
	return execQuery(ctx, db.GetPgxExecutorFromContext(ctx, p.pool), &q)
}

func (p *pgxTeamRepository) Find(ctx context.Context, filter *TeamFilter) ([]*Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := findTeamsQuery(filter)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Team, error) {
		return scanTeam(row)
	})
}

func findTeamsQuery(filter *TeamFilter) bob.BaseQuery[*dialect.SelectQuery] {
	q := psql.Select(
		sm.Columns(teamColumns...),
		sm.From("teams"),
		sm.OrderBy("name"),
	)

	if filter == nil {
		return q
	}

	if filter.Open {
		q.Apply(
			sm.Where(psql.Quote("complete").EQ(psql.Arg(false))),
			sm.Where(psql.Quote("dissolved").EQ(psql.Arg(false))),
		)
	}
	if filter.WantedSkill != "" {
		q.Apply(sm.Where(psql.Raw("? = ANY(wanted_skills)", filter.WantedSkill)))
	}
	if filter.Prize != "" {
		q.Apply(sm.Where(psql.Raw("? = ANY(prizes)", filter.Prize)))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		q.Apply(sm.Where(psql.Raw(
			"(name ILIKE ? OR description ILIKE ? OR array_to_string(wanted_skills, ' ') ILIKE ? OR array_to_string(prizes, ' ') ILIKE ?)",
			pattern, pattern, pattern, pattern,
		)))
	}

	return q
}

// escapeLike makes s match literally inside a LIKE pattern (backslash is the default escape).
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanTeam(row pgx.Row) (*Team, error) {
	team := &Team{}
	if err := row.Scan(
		&team.Name,
		&team.Members,
		&team.Description,
		&team.WantedSkills,
		&team.Prizes,
		&team.Complete,
		&team.Interested,
		&team.Dissolved,
		&team.Version,
	); err != nil {
		return nil, err
	}
	return team, nil
}
