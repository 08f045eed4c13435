package inmemdb

import (
	"sync"

	"github.com/aiworkshop/slides/core/course"
)

type (
	DB struct {
		course *courseTable
	}

	courseTable struct {
		mutex sync.RWMutex
		table map[string]*course.Course
	}
)

func Open() *DB {
	return &DB{
		course: &courseTable{table: make(map[string]*course.Course)},
	}
}
