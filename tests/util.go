package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo course.Repository, title, slug string) course.Subject {
	sub, err := repo.CreateSubject(context.Background(), course.Subject{
		ID:    uuid.New().String(),
		Title: title,
		Slug:  slug,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	sub course.Subject,
	owner user.User,
	title, slug string,
	createdAt ...time.Time,
) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		ID:        uuid.New().String(),
		SubjectID: sub.ID,
		OwnerID:   owner.ID,
		Title:     title,
		Slug:      slug,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

// CreateModule appends a module to the course.
func CreateModule(t *testing.T, repo course.Repository, crs course.Course, title string) course.Module {
	mod, err := repo.CreateModule(context.Background(), course.Module{
		ID:       uuid.New().String(),
		CourseID: crs.ID,
		Title:    title,
		Order:    course.AutoOrder,
	})
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return mod
}

// CreateText appends a text item to the module.
func CreateText(t *testing.T, repo content.Repository, mod course.Module, owner user.User, title, text string) content.Content {
	ctx := context.Background()
	now := time.Now().UTC()
	item := &content.Text{
		ItemBase: content.ItemBase{
			ID:        uuid.New().String(),
			OwnerID:   owner.ID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Content: text,
	}
	if _, err := repo.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateText() failed: %v", err)
	}
	cnt, err := repo.CreateContent(ctx, content.Content{
		ID:       uuid.New().String(),
		ModuleID: mod.ID,
		Order:    content.AutoOrder,
		ItemType: content.TypeText,
		ItemID:   item.ID,
		Item:     item,
	})
	if err != nil {
		t.Fatalf("CreateText() failed: %v", err)
	}
	return cnt
}
