package hierarchy

// Edge 遍历用的边视图
// 只携带遍历需要的字段,按不透明 ID 索引,不持有实体对象
type Edge struct {
	ID           string
	FromID       string
	ToID         string
	RelationType string
	Rule         InheritanceRule
}

// Step 遍历中的一步
// Forward 表示沿 FromID -> ToID 方向经过该边
type Step struct {
	Edge    *Edge
	NextID  string
	Forward bool
}

// Path 从请求者到目标的一条路径
type Path struct {
	Nodes []string
	Steps []Step
}

// Final 返回到达目标的最后一步
func (p Path) Final() Step {
	return p.Steps[len(p.Steps)-1]
}

// Hops 返回路径的跳数
func (p Path) Hops() int {
	return len(p.Steps)
}

// Graph 某组织在单一领域内的关系图快照
// 邻接表按实体 ID 索引,遍历和环路检查都在快照上进行,
// 保证每次操作的边界可预测且不阻塞数据库
type Graph struct {
	out map[string][]*Edge
	in  map[string][]*Edge
}

// NewGraph 基于边集合构建图快照
func NewGraph(edges []*Edge) *Graph {
	g := &Graph{
		out: make(map[string][]*Edge),
		in:  make(map[string][]*Edge),
	}
	for _, e := range edges {
		g.out[e.FromID] = append(g.out[e.FromID], e)
		g.in[e.ToID] = append(g.in[e.ToID], e)
	}
	return g
}

// From 返回以指定实体为起点的边
func (g *Graph) From(id string) []*Edge {
	return g.out[id]
}

// To 返回以指定实体为终点的边
func (g *Graph) To(id string) []*Edge {
	return g.in[id]
}

// steps 返回从指定实体出发、继承规则允许的所有遍历步
func (g *Graph) steps(id string) []Step {
	var steps []Step
	for _, e := range g.out[id] {
		if e.Rule.CanTraverse(true) {
			steps = append(steps, Step{Edge: e, NextID: e.ToID, Forward: true})
		}
	}
	for _, e := range g.in[id] {
		if e.Rule.CanTraverse(false) {
			steps = append(steps, Step{Edge: e, NextID: e.FromID, Forward: false})
		}
	}
	return steps
}

// FindPaths 广度优先收集 from 到 to 的所有不超过 maxDepth 跳的路径
// 路径内不允许重复访问节点,truncated 表示搜索在深度边界被截断
func (g *Graph) FindPaths(from string, to string, maxDepth int) (paths []Path, truncated bool) {
	type state struct {
		node string
		path Path
	}
	queue := []state{{node: from, path: Path{Nodes: []string{from}}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, step := range g.steps(cur.node) {
			if containsNode(cur.path.Nodes, step.NextID) {
				continue
			}
			next := Path{
				Nodes: appendCopy(cur.path.Nodes, step.NextID),
				Steps: appendStepCopy(cur.path.Steps, step),
			}
			if step.NextID == to {
				paths = append(paths, next)
				continue
			}
			if next.Hops() >= maxDepth {
				// 还有可走的边但已到达深度边界
				truncated = true
				continue
			}
			queue = append(queue, state{node: step.NextID, path: next})
		}
	}
	return paths, truncated
}

// ReachableDown 判断沿层级方向(from -> to)是否可以在 maxDepth 跳内
// 从 start 到达 goal,只经过继承规则非 NONE 的边
// 用于环路检查:新边 from -> to 会形成环,当且仅当 to 已能到达 from
func (g *Graph) ReachableDown(start string, goal string, maxDepth int) bool {
	visited := map[string]bool{start: true}
	frontier := []string{start}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, e := range g.out[id] {
				if e.Rule == InheritanceNone || visited[e.ToID] {
					continue
				}
				if e.ToID == goal {
					return true
				}
				visited[e.ToID] = true
				next = append(next, e.ToID)
			}
		}
		frontier = next
	}
	return false
}

// Ancestors 广度优先收集上级实体(指向 id 的边的起点),最多 maxDepth 层
func (g *Graph) Ancestors(id string, maxDepth int) []Step {
	return g.collect(id, maxDepth, func(n string) []Step {
		var steps []Step
		for _, e := range g.in[n] {
			steps = append(steps, Step{Edge: e, NextID: e.FromID, Forward: false})
		}
		return steps
	})
}

// Descendants 广度优先收集下级实体(以 id 为起点的边的终点),最多 maxDepth 层
func (g *Graph) Descendants(id string, maxDepth int) []Step {
	return g.collect(id, maxDepth, func(n string) []Step {
		var steps []Step
		for _, e := range g.out[n] {
			steps = append(steps, Step{Edge: e, NextID: e.ToID, Forward: true})
		}
		return steps
	})
}

// collect 方向无关的层级收集
func (g *Graph) collect(id string, maxDepth int, expand func(string) []Step) []Step {
	visited := map[string]bool{id: true}
	frontier := []string{id}
	var result []Step

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, n := range frontier {
			for _, step := range expand(n) {
				if visited[step.NextID] {
					continue
				}
				visited[step.NextID] = true
				result = append(result, step)
				next = append(next, step.NextID)
			}
		}
		frontier = next
	}
	return result
}

// MaxDepth 计算图中从根节点(无入边的节点)出发的最大层级深度
// 单节点图的深度为 1
func (g *Graph) MaxDepth() int {
	nodes := make(map[string]bool)
	for id := range g.out {
		nodes[id] = true
	}
	for id := range g.in {
		nodes[id] = true
	}

	maxDepth := 0
	for id := range nodes {
		if len(g.in[id]) > 0 {
			continue
		}
		if d := g.depthFrom(id, map[string]bool{}); d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

// depthFrom 从指定节点向下计算深度,visited 防止重复展开
func (g *Graph) depthFrom(id string, visited map[string]bool) int {
	if visited[id] {
		return 0
	}
	visited[id] = true

	maxChild := 0
	for _, e := range g.out[id] {
		if d := g.depthFrom(e.ToID, visited); d > maxChild {
			maxChild = d
		}
	}
	return 1 + maxChild
}

// Nodes 返回图中出现过的全部实体 ID
func (g *Graph) Nodes() []string {
	set := make(map[string]bool)
	for id := range g.out {
		set[id] = true
	}
	for id := range g.in {
		set[id] = true
	}
	nodes := make([]string, 0, len(set))
	for id := range set {
		nodes = append(nodes, id)
	}
	return nodes
}

// NodeCount 返回图中出现过的实体数量
func (g *Graph) NodeCount() int {
	return len(g.Nodes())
}

func containsNode(nodes []string, id string) bool {
	for _, n := range nodes {
		if n == id {
			return true
		}
	}
	return false
}

func appendCopy(s []string, v string) []string {
	out := make([]string, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

func appendStepCopy(s []Step, v Step) []Step {
	out := make([]Step, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
