package gateway

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
)

// commitHistoryQuery asks for the length of the default branch history.
// DefaultBranchRef is null for an empty repository.
type commitHistoryQuery struct {
	Repository struct {
		DefaultBranchRef *struct {
			Target struct {
				Commit struct {
					History struct {
						TotalCount githubv4.Int
					}
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

func (g *GitHubGateway) fetchCommitCountGraphQL(ctx context.Context, owner, repo string) CommitCountResult {
	variables := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(repo),
	}

	var q commitHistoryQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return CommitCountResult{Err: fmt.Errorf("failed to execute GraphQL query for commit history: %w", err)}
	}
	if q.Repository.DefaultBranchRef == nil {
		return CommitCountResult{}
	}
	return CommitCountResult{Count: int(q.Repository.DefaultBranchRef.Target.Commit.History.TotalCount)}
}
