package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store bundles the repositories of one backend together with the handles
// needed to migrate and close it.
type Store struct {
	Users UserRepositoryInterface
	Tasks TaskRepositoryInterface

	sqlDB       *sql.DB
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
}

// Open connects to the backend named by driver: "mongo", "postgres" or
// "sqlite3".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "mongo":
		client, database, err := ConnectMongo(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Store{
			Users:       NewMongoUserRepository(database),
			Tasks:       NewMongoTaskRepository(database),
			mongoClient: client,
			mongoDB:     database,
		}, nil

	case "postgres", "sqlite3":
		dbConn, err := Connect(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", driver, err)
		}
		if driver == "sqlite3" {
			// sqlite allows one writer at a time, and every connection to
			// ":memory:" would otherwise get its own empty database.
			dbConn.SetMaxOpenConns(1)
		}
		return NewSQLStore(dbConn), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func NewSQLStore(dbConn *sql.DB) *Store {
	return &Store{
		Users: NewUserRepository(dbConn),
		Tasks: NewTaskRepository(dbConn),
		sqlDB: dbConn,
	}
}

// Migrate creates the SQL schema, or the mongo indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if s.mongoDB != nil {
		return EnsureMongoIndexes(ctx, s.mongoDB)
	}
	return Migrate(ctx, s.sqlDB)
}

func (s *Store) Close(ctx context.Context) error {
	if s.mongoClient != nil {
		return s.mongoClient.Disconnect(ctx)
	}
	return s.sqlDB.Close()
}
