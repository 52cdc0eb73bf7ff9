package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// TopicRunner runs one collection cycle for a topic
type TopicRunner interface {
	RunTopic(ctx context.Context, topic string) (TopicStats, error)
}

// TopicStats summarizes one topic's cycle
type TopicStats struct {
	Output    string // store file written
	Collected int    // records kept after filtering
	Added     int    // new records merged into the store
	Total     int    // records in the store afterwards
}

// TopicJob represents one topic of a batch
type TopicJob struct {
	Index  int
	Topic  string
	Runner TopicRunner
}

// Execute executes the topic job. A panicking runner is reported as an error.
func (j *TopicJob) Execute(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = &TopicResult{Index: j.Index, Topic: j.Topic, Error: fmt.Errorf("topic %q panicked: %v", j.Topic, r)}
		}
	}()

	stats, err := j.Runner.RunTopic(ctx, j.Topic)
	return &TopicResult{
		Index: j.Index,
		Topic: j.Topic,
		Stats: stats,
		Error: err,
	}
}

// TopicResult represents the result of a topic job
type TopicResult struct {
	Index int
	Topic string
	Stats TopicStats
	Error error
}

// GetError returns the error from the topic result
func (r *TopicResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple topics concurrently
type BatchProcessor struct {
	runner      TopicRunner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner TopicRunner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessTopics runs every topic and returns the results in input order
func (b *BatchProcessor) ProcessTopics(ctx context.Context, topics []string) []*TopicResult {
	if len(topics) == 0 {
		return []*TopicResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for i, topic := range topics {
		pool.Submit(&TopicJob{
			Index:  i,
			Topic:  topic,
			Runner: b.runner,
		})
	}

	results := pool.Wait()

	topicResults := make([]*TopicResult, 0, len(results))
	for _, result := range results {
		if tr, ok := result.(*TopicResult); ok {
			topicResults = append(topicResults, tr)
		}
	}
	sort.Slice(topicResults, func(i, j int) bool {
		return topicResults[i].Index < topicResults[j].Index
	})

	return topicResults
}

// ProcessFile reads topics from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*TopicResult, error) {
	topics, err := ReadTopicsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}

	return b.ProcessTopics(ctx, topics), nil
}

// ReadTopicsFromFile reads topics from a file, one per line. Blank lines and
// lines starting with # are skipped and duplicates are removed.
func ReadTopicsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var topics []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			topics = append(topics, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return topics, nil
}
