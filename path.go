package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/sim/patrol/source"
	"go.mongodb.org/mongo-driver/mongo"
)

// Path locates the road graph cache: a directory of JSON files, or a mongo
// collection written as {db}.{col}.
type Path struct {
	Dir  string
	DB   string
	Coll string
}

func NewPath(dirOrColl string) (*Path, error) {
	// existing directory
	if info, err := os.Stat(dirOrColl); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("cache path %s is not a directory", dirOrColl)
		}
		return &Path{Dir: dirOrColl}, nil
	}
	dbDotColl := strings.TrimSpace(dirOrColl)
	if dbDotColl == "" {
		return nil, nil
	}
	if strings.ContainsRune(dbDotColl, filepath.Separator) || !strings.Contains(dbDotColl, ".") {
		return &Path{Dir: dbDotColl}, nil
	}
	splitted := strings.Split(dbDotColl, ".")
	if len(splitted) != 2 || splitted[0] == "" || splitted[1] == "" {
		return nil, fmt.Errorf("dbDotColl is invalid: %s", dbDotColl)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func (p *Path) GetDb() string {
	return p.DB
}

func (p *Path) GetColl() string {
	return p.Coll
}

func (p *Path) String() string {
	if p.Dir != "" {
		return p.Dir
	}
	return p.DB + "." + p.Coll
}

// OpenStore opens the store p points at. A nil path means no persistent
// cache. The returned client is nil unless the store lives in mongo.
func (p *Path) OpenStore(mongoURI string) (source.Store, *mongo.Client, error) {
	if p == nil {
		return nil, nil, nil
	}
	if p.Dir != "" {
		s, err := source.NewFileStore(p.Dir)
		return s, nil, err
	}
	if mongoURI == "" {
		return nil, nil, fmt.Errorf("cache %s needs -mongo_uri", p)
	}
	client := mongoutil.NewClient(mongoURI)
	return source.NewMongoStore(mongoutil.GetMongoColl(client, p)), client, nil
}
