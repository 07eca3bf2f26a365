package app

import (
	"context"

	"stegochat/internal/model"
)

func (c *App) getUserAndCreateIfNotExist(ctx context.Context, username string) (*model.User, error) {
	user, err := c.userRepo.GetByName(ctx, username)
	if err != nil {
		return nil, err
	}

	if user != nil {
		return user, nil
	}

	user = &model.User{
		Name: username,
	}

	_, err = c.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	return user, nil
}
