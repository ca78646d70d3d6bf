package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"gorm.io/gorm"
)

type ListItemCommand struct {
	Value int    `json:"value" binding:"required,min=1"`
	Text  string `json:"text" binding:"required,max=50"`
}

type CreateListItemCommand struct {
	FieldID uint `json:"field_id" binding:"required"`
	ListItemCommand
}

var listItemColumns = repository.Columns{
	Search: []string{"list_items.text"},
	Filters: map[string]repository.Filter{
		"field": repository.Equals("list_items.field_id"),
		"value": repository.Equals("list_items.value"),
		"text":  repository.Contains("list_items.text"),
	},
	Sorts: map[string]string{
		"id":    "list_items.id",
		"value": "list_items.value",
		"text":  "list_items.text",
	},
}

func loadListItem(ctx context.Context, db *gorm.DB, id uint) (*models.ListItem, error) {
	return repository.New[models.ListItem](db, "list item").Get(ctx, id, "Field.State.Template.Project")
}

func (s *Service) ListListItems(ctx context.Context, actor *models.User, q repository.Query) (*repository.Page[models.ListItem], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var page *repository.Page[models.ListItem]
	err := s.read(ctx, "list_item.list", func(db *gorm.DB) error {
		var err error
		page, err = repository.Collect[models.ListItem](ctx, db, q, listItemColumns)
		return err
	})
	return page, err
}

func (s *Service) GetListItem(ctx context.Context, actor *models.User, id uint) (*models.ListItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var item *models.ListItem
	err := s.read(ctx, "list_item.get", func(db *gorm.DB) error {
		var err error
		item, err = loadListItem(ctx, db, id)
		return err
	})
	return item, err
}

func (s *Service) CreateListItem(ctx context.Context, actor *models.User, cmd CreateListItemCommand) (*models.ListItem, error) {
	var item *models.ListItem
	err := s.transact(ctx, "list_item.create", func(tx *gorm.DB) error {
		field, err := loadField(ctx, tx, cmd.FieldID)
		if err != nil {
			return err
		}
		if !s.itemVoter.CanCreate(actor, field) {
			return deny("you are not allowed to add items to this field")
		}

		item = &models.ListItem{FieldID: field.ID, Value: cmd.Value, Text: strings.TrimSpace(cmd.Text)}
		repo := repository.New[models.ListItem](tx, "list item")
		if err := uniqueListItem(ctx, repo, item); err != nil {
			return err
		}
		if err := repo.Create(ctx, item); err != nil {
			return err
		}
		item.Field = *field
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) UpdateListItem(ctx context.Context, actor *models.User, id uint, cmd ListItemCommand) (*models.ListItem, error) {
	var item *models.ListItem
	err := s.transact(ctx, "list_item.update", func(tx *gorm.DB) error {
		var err error
		if item, err = loadListItem(ctx, tx, id); err != nil {
			return err
		}
		if !s.itemVoter.CanUpdate(actor, item) {
			return deny("you are not allowed to update this item")
		}

		if cmd.Value != item.Value {
			inUse, err := listItemInUse(ctx, tx, item)
			if err != nil {
				return err
			}
			if inUse {
				return apperrors.Conflict("value of item %q is in use", item.Text)
			}
		}

		item.Value = cmd.Value
		item.Text = strings.TrimSpace(cmd.Text)

		repo := repository.New[models.ListItem](tx, "list item")
		if err := uniqueListItem(ctx, repo, item); err != nil {
			return err
		}
		return repo.Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteListItem(ctx context.Context, actor *models.User, id uint) error {
	return s.transact(ctx, "list_item.delete", func(tx *gorm.DB) error {
		item, err := loadListItem(ctx, tx, id)
		if err != nil {
			return err
		}

		inUse, err := listItemInUse(ctx, tx, item)
		if err != nil {
			return err
		}
		if !s.itemVoter.CanDelete(actor, item, inUse) {
			if inUse {
				return apperrors.Conflict("item %q is in use", item.Text)
			}
			return deny("you are not allowed to delete this item")
		}

		return repository.New[models.ListItem](tx, "list item").Delete(ctx, item)
	})
}

func uniqueListItem(ctx context.Context, repo *repository.Repository[models.ListItem], item *models.ListItem) error {
	taken, err := repo.Exists(ctx, "field_id = ? AND value = ? AND id <> ?", item.FieldID, item.Value, item.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("item with value %d already exists", item.Value)
	}

	taken, err = repo.Exists(ctx, "field_id = ? AND text = ? AND id <> ?", item.FieldID, item.Text, item.ID)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.Conflict("item with text %q already exists", item.Text)
	}
	return nil
}

func listItemInUse(ctx context.Context, db *gorm.DB, item *models.ListItem) (bool, error) {
	return repository.New[models.FieldValue](db, "field value").
		Exists(ctx, "field_id = ? AND value = ?", item.FieldID, strconv.Itoa(item.Value))
}
