package repos

import (
	"context"

	models "github.com/campuslink/notification-server/models/userdata"
	"github.com/uptrace/bun"
)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (c *UserRepo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)

	err := c.db.NewSelect().Model(user).Where(`"user"."id" = ?`, id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ClassMembers returns the ids of every account currently enrolled in the
// class with the given code.
func (c *UserRepo) ClassMembers(ctx context.Context, code string) ([]int64, error) {
	ids := make([]int64, 0)

	err := c.db.NewSelect().Model((*models.User)(nil)).
		ColumnExpr(`"user".id`).
		Join(`JOIN userdata.classes_users AS cu ON cu.user_id = "user".id`).
		Join(`JOIN userdata.classes AS class ON class.id = cu.class_id`).
		Where("class.code = ?", code).
		OrderExpr(`"user".id ASC`).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// ProgramChairs returns the chairperson accounts scoped to one program tag.
func (c *UserRepo) ProgramChairs(ctx context.Context, program string) ([]int64, error) {
	ids := make([]int64, 0)

	err := c.db.NewSelect().Model((*models.User)(nil)).
		Column("id").
		Where("role = ?", models.RoleChairperson).
		Where("program = ?", program).
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// MainAdministrators returns the unscoped administrator tier, which receives
// every program-scoped administrative event regardless of program.
func (c *UserRepo) MainAdministrators(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)

	err := c.db.NewSelect().Model((*models.User)(nil)).
		Column("id").
		Where("role = ?", models.RoleAdministrator).
		Where("program IS NULL").
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// EmailTargets returns name and address for the given recipients who opted
// into email notices and have a verified address.
func (c *UserRepo) EmailTargets(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	users := make([]models.User, 0)

	err := c.db.NewSelect().Model(&users).
		Column("id", "name", "email").
		Where(`"user"."id" IN (?)`, bun.In(ids)).
		Where("email_notices = ?", true).
		Where("verified = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return users, nil
}
