package registry

// One fixed document per operation. Input values never reach the document
// text itself, only the variables payload, so there is no injection path
// through string assembly.
const (
	queryAgentsDocument = `query QueryAgents($input: QueryAgentsInput!) {` +
		`  agents(in: $input) {` +
		`    data {` +
		`      id orgID kind name version config os arch status` +
		`      lastSeen createdAt updatedAt` +
		`      labels { id key value }` +
		`    }` +
		`    paginatorInfo {` +
		`      totalCount page perPage totalPages` +
		`    }` +
		`  }` +
		`}`

	getAgentDocument = `query GetAgent($id: ID!) {` +
		`  agent(agentID: $id) {` +
		`    id orgID kind name version config os arch status` +
		`    lastSeen createdAt updatedAt` +
		`    labels { id key value }` +
		`  }` +
		`}`

	getAgentByNameDocument = `query GetAgentByName($orgID: ID!, $name: String!) {` +
		`  agentByName(orgID: $orgID, name: $name) {` +
		`    id orgID kind name version config os arch status` +
		`    lastSeen createdAt updatedAt` +
		`    labels { id key value }` +
		`  }` +
		`}`

	createAgentDocument = `mutation CreateAgent($input: CreateAgentInput!) {` +
		`  createAgent(in: $input) {` +
		`    id token createdAt` +
		`  }` +
		`}`

	updateAgentDocument = `mutation UpdateAgent($in: UpdateAgentInput!) {` +
		`  updateAgent(in: $in)` +
		`}`

	addMetricsDocument = `mutation AddMetrics($input: AddMetricsInput!) {` +
		`  addMetrics(in: $input)` +
		`}`

	assignLabelsDocument = `mutation AssignLabels($in: AssignLabelsInput!) {` +
		`  assignLabels(in: $in)` +
		`}`
)
