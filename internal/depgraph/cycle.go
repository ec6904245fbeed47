package depgraph

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in index order so the result is deterministic. Each SCC
// lists its members in pop order. Single-node SCCs without self-loops are
// not cycles.
func tarjanSCC(adj [][]int) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(adj))
		lowlink = make([]int, len(adj))
		onStack = make([]bool, len(adj))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range adj {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(v int, adj [][]int) bool {
	for _, w := range adj[v] {
		if w == v {
			return true
		}
	}
	return false
}

// findCycle returns one cycle of adj as a node path with the first node
// repeated at the end, or nil if adj is acyclic. The cycle starts at the
// lowest node of the first cyclic SCC.
func findCycle(adj [][]int) []int {
	for _, scc := range tarjanSCC(adj) {
		if len(scc) == 1 {
			if hasSelfLoop(scc[0], adj) {
				return []int{scc[0], scc[0]}
			}
			continue
		}
		return reconstructCyclePath(scc, adj)
	}
	return nil
}

// reconstructCyclePath builds a shortest cycle through the lowest member
// of an SCC, using breadth-first search restricted to the SCC.
func reconstructCyclePath(scc []int, adj [][]int) []int {
	members := make(map[int]bool, len(scc))
	start := scc[0]
	for _, v := range scc {
		members[v] = true
		if v < start {
			start = v
		}
	}

	parent := map[int]int{}
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if !members[w] {
				continue
			}
			if w == start {
				path := []int{start}
				for cur := v; cur != start; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, start)
				// path was collected backwards from v; reverse the middle
				for i, j := 1, len(path)-2; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			if _, seen := parent[w]; !seen {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []int{start, start}
}
