package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type timelineDocument struct {
	Status    string    `bson:"status"`
	UpdatedBy string    `bson:"updated_by"`
	Note      string    `bson:"note"`
	Timestamp time.Time `bson:"timestamp"`
}

type taskDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Priority    string               `bson:"priority"`
	Status      string               `bson:"status"`
	AssignedTo  []primitive.ObjectID `bson:"assigned_to"`
	CreatedBy   primitive.ObjectID   `bson:"created_by"`
	DueDate     string               `bson:"due_date"`
	Timeline    []timelineDocument   `bson:"timeline"`
	CreatedAt   time.Time            `bson:"created_at"`
}

func newTimelineDocument(entry models.TimelineEntry) timelineDocument {
	return timelineDocument{
		Status:    entry.Status,
		UpdatedBy: entry.UpdatedBy,
		Note:      entry.Note,
		Timestamp: entry.Timestamp,
	}
}

func (d *taskDocument) model() *models.Task {
	task := &models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    models.Priority(d.Priority),
		Status:      d.Status,
		AssignedTo:  make([]string, 0, len(d.AssignedTo)),
		CreatedBy:   d.CreatedBy.Hex(),
		DueDate:     d.DueDate,
		Timeline:    make([]models.TimelineEntry, 0, len(d.Timeline)),
		CreatedAt:   d.CreatedAt,
	}
	for _, oid := range d.AssignedTo {
		task.AssignedTo = append(task.AssignedTo, oid.Hex())
	}
	for _, entry := range d.Timeline {
		task.Timeline = append(task.Timeline, models.TimelineEntry{
			Status:    entry.Status,
			UpdatedBy: entry.UpdatedBy,
			Note:      entry.Note,
			Timestamp: entry.Timestamp,
		})
	}
	return task
}

type MongoTaskRepository struct {
	tasks *mongo.Collection
}

func NewMongoTaskRepository(database *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{tasks: database.Collection(tasksCollection)}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	createdBy, err := parseObjectID(task.CreatedBy)
	if err != nil {
		return err
	}
	assignees := make([]primitive.ObjectID, 0, len(task.AssignedTo))
	for _, id := range task.AssignedTo {
		oid, err := parseObjectID(id)
		if err != nil {
			return err
		}
		assignees = append(assignees, oid)
	}
	timeline := make([]timelineDocument, 0, len(task.Timeline))
	for _, entry := range task.Timeline {
		timeline = append(timeline, newTimelineDocument(entry))
	}

	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Status:      task.Status,
		AssignedTo:  assignees,
		CreatedBy:   createdBy,
		DueDate:     task.DueDate,
		Timeline:    timeline,
		CreatedAt:   task.CreatedAt,
	}
	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = doc.ID.Hex()
	return nil
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	err = r.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return doc.model(), nil
}

func (r *MongoTaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	if filter.DueDate != "" {
		query["due_date"] = filter.DueDate
	}
	if filter.AssignedTo != "" {
		oid, err := parseObjectID(filter.AssignedTo)
		if err != nil {
			return []*models.Task{}, nil
		}
		// equality against an array field matches any element
		query["assigned_to"] = oid
	}
	return r.find(ctx, query)
}

func (r *MongoTaskRepository) ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	return r.List(ctx, models.TaskFilter{AssignedTo: userID})
}

func (r *MongoTaskRepository) UpdateStatus(ctx context.Context, id string, entry models.TimelineEntry) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	result, err := r.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":  bson.M{"status": entry.Status},
		"$push": bson.M{"timeline": newTimelineDocument(entry)},
	})
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) (*models.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	err = r.tasks.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return doc.model(), nil
}

func (r *MongoTaskRepository) find(ctx context.Context, query bson.M) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]*models.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].model())
	}
	return tasks, nil
}
