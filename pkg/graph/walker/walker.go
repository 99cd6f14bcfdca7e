// Copyright 2025 The Groundwork Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package walker executes a DAG's vertices in dependency order with bounded
// parallelism. The reconciler uses it to submit independent resources
// concurrently while failed vertices block only their dependents.
package walker

import (
	"cmp"
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/groundwork-run/groundwork/pkg/graph/dag"
)

// VertexFunc is the callback function executed for each vertex in the graph.
// It receives the vertex ID and returns an error if processing fails.
type VertexFunc[T cmp.Ordered] func(ctx context.Context, vertexID T) error

// Options configures the walker's execution behavior.
type Options struct {
	// Parallelism sets the maximum number of concurrent workers.
	// If <= 0, defaults to runtime.NumCPU().
	Parallelism int

	// StopOnError determines whether to stop execution when any vertex fails.
	// If false, continues executing independent vertices even after failures.
	StopOnError bool

	// Reverse walks the DAG in reverse topological order (bottom-up). Used
	// for teardown, where dependents must go before their dependencies.
	Reverse bool
}

// Walk executes the DAG in parallel using a fixed worker pool. A vertex runs
// once all its dependencies (or dependents, in Reverse mode) have completed
// successfully. Vertices downstream of a failure are skipped and do not
// appear in the returned error map; only vertices whose fn returned an error
// do. The DAG itself is never mutated.
func Walk[T cmp.Ordered](ctx context.Context, d *dag.DirectedAcyclicGraph[T], fn VertexFunc[T], opts Options) map[T]error {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}

	// indegree counts how many prerequisites each vertex is still waiting
	// on; nextVertices holds the vertices unblocked by completing this one.
	indegree := make(map[T]*int32)
	nextVertices := make(map[T][]T)

	if opts.Reverse {
		for id := range d.Vertices {
			count := int32(0)
			indegree[id] = &count
		}
		for id := range d.Vertices {
			for dep := range d.Vertices[id].DependsOn {
				atomic.AddInt32(indegree[dep], 1)
				nextVertices[id] = append(nextVertices[id], dep)
			}
		}
	} else {
		for id := range d.Vertices {
			count := int32(len(d.Vertices[id].DependsOn))
			indegree[id] = &count
			for dep := range d.Vertices[id].DependsOn {
				nextVertices[dep] = append(nextVertices[dep], id)
			}
		}
	}

	ready := make(chan T, len(d.Vertices))
	for id, count := range indegree {
		if *count == 0 {
			ready <- id
		}
	}

	var mu sync.Mutex
	errors := make(map[T]error)
	processed := make(map[T]bool)
	remaining := len(d.Vertices)

	// finish transitions a vertex to processed and closes the ready channel
	// once every vertex is accounted for, which lets idle workers drain and
	// exit. Must be called with mu held.
	finish := func(id T) bool {
		if processed[id] {
			return false
		}
		processed[id] = true
		remaining--
		if remaining == 0 {
			close(ready)
		}
		return true
	}

	// markSkipped cascades through everything downstream of a failure.
	var markSkipped func(T)
	markSkipped = func(id T) {
		mu.Lock()
		first := finish(id)
		mu.Unlock()
		if !first {
			return
		}
		for _, next := range nextVertices[id] {
			markSkipped(next)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(opts.Parallelism))

	for i := 0; i < opts.Parallelism; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case id, ok := <-ready:
					if !ok {
						return nil
					}

					if err := sem.Acquire(ctx, 1); err != nil {
						return err
					}
					err := fn(ctx, id)
					sem.Release(1)

					mu.Lock()
					finish(id)
					if err != nil {
						errors[id] = err
					}
					mu.Unlock()

					if err != nil {
						for _, next := range nextVertices[id] {
							markSkipped(next)
						}
						if opts.StopOnError {
							return err
						}
						continue
					}

					for _, next := range nextVertices[id] {
						if atomic.AddInt32(indegree[next], -1) == 0 {
							mu.Lock()
							isSkipped := processed[next]
							mu.Unlock()

							if !isSkipped {
								select {
								case ready <- next:
								case <-ctx.Done():
									return ctx.Err()
								}
							}
						}
					}
				}
			}
		})
	}

	_ = g.Wait()

	return errors
}
