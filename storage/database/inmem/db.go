package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

type (
	// DB holds all the tables behind a single lock: deletes cascade across tables.
	DB struct {
		mu          sync.RWMutex
		users       map[string]*user.User
		subjects    map[string]*course.Subject
		courses     map[string]*course.Course
		modules     map[string]*course.Module
		enrollments map[enrollment]struct{}
		contents    map[string]*content.Content
		items       map[string]content.Item
	}

	enrollment struct {
		courseID  string
		studentID string
	}
)

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[string]*user.User),
		subjects:    make(map[string]*course.Subject),
		courses:     make(map[string]*course.Course),
		modules:     make(map[string]*course.Module),
		enrollments: make(map[enrollment]struct{}),
		contents:    make(map[string]*content.Content),
		items:       make(map[string]content.Item),
	}
	return db, nil
}

// deleteUser deletes a user along with their courses and items. The caller must hold the write lock.
func (db *DB) deleteUser(id string) {
	delete(db.users, id)
	for crsID, crs := range db.courses {
		if crs.OwnerID == id {
			db.deleteCourse(crsID)
		}
	}
	for enr := range db.enrollments {
		if enr.studentID == id {
			delete(db.enrollments, enr)
		}
	}
	for itemID, item := range db.items {
		if item.Base().OwnerID == id {
			delete(db.items, itemID)
			for cntID, cnt := range db.contents {
				if cnt.ItemID == itemID {
					delete(db.contents, cntID)
				}
			}
		}
	}
}

// deleteCourse deletes a course along with its modules, contents and enrollments. The caller must hold the write lock.
func (db *DB) deleteCourse(id string) {
	delete(db.courses, id)
	for modID, mod := range db.modules {
		if mod.CourseID == id {
			db.deleteModule(modID)
		}
	}
	for enr := range db.enrollments {
		if enr.courseID == id {
			delete(db.enrollments, enr)
		}
	}
}

// deleteModule deletes a module along with its contents. The caller must hold the write lock.
func (db *DB) deleteModule(id string) {
	delete(db.modules, id)
	for cntID, cnt := range db.contents {
		if cnt.ModuleID == id {
			db.deleteContent(cntID)
		}
	}
}

// deleteContent deletes a content along with its item. The caller must hold the write lock.
func (db *DB) deleteContent(id string) {
	if cnt, ok := db.contents[id]; ok {
		delete(db.items, cnt.ItemID)
		delete(db.contents, id)
	}
}

// Transactor runs units of work as is: the in-memory tables have no rollback.
type Transactor struct{}

var _ core.Transactor = Transactor{} // interface compliance check

func NewTransactor() Transactor {
	return Transactor{}
}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
