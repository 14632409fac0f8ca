package coding

import (
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
)

// operationCount returns the number of video coding operations the command issues: one, or one
// per tile for an encode command that splits its picture into tiles.
func (c *command) operationCount() uint32 {
	if c.tiles > 1 {
		return c.tiles
	}
	return 1
}

// checkQueries validates the inline query of a command, or the query active around it.
func (c *command) checkQueries(inline *InlineQuery, encode bool) {
	active := c.r.query
	ops := c.operationCount()
	if inline == nil {
		if active == nil {
			return
		}
		pool, ok := c.r.resources.QueryPool(active.pool)
		if !ok {
			c.addf(report.StructuralError, RuleQueryPool, "active query pool %v is not a live query pool", active.pool)
			return
		}
		c.checkQueryPool(pool, encode)
		if uint64(active.query)+uint64(ops) > uint64(pool.Count) {
			c.addf(report.RangeError, RuleQueryRange, "active query %d needs %d queries but the pool has %d",
				active.query, ops, pool.Count)
		}
		return
	}

	if !c.sc.session.HasFlags(session.CreateInlineQueries) {
		c.addf(report.ConsistencyError, RuleInlineQueryNotEnabled, "inline queries require a session created with inline queries enabled")
	}
	if active != nil {
		c.addf(report.ConsistencyError, RuleQueryConflict, "inline query used while query %d of pool %v is active", active.query, active.pool)
	}
	pool, ok := c.r.resources.QueryPool(inline.Pool)
	if !ok {
		c.addf(report.StructuralError, RuleQueryPool, "inline query pool %v is not a live query pool", inline.Pool)
		return
	}
	c.checkQueryPool(pool, encode)
	if uint64(inline.FirstQuery)+uint64(inline.QueryCount) > uint64(pool.Count) {
		c.addf(report.RangeError, RuleQueryRange, "queries [%d, %d) exceed the pool size %d",
			inline.FirstQuery, uint64(inline.FirstQuery)+uint64(inline.QueryCount), pool.Count)
	}
	if inline.QueryCount != ops {
		c.addf(report.ConsistencyError, RuleQueryCount, "queryCount %d does not match the operation count %d",
			inline.QueryCount, ops)
	}
}

func (c *command) checkQueryPool(pool *resource.QueryPool, encode bool) {
	switch pool.Type {
	case resource.QueryTypeResultStatusOnly:
		if !c.r.facts.ResultStatusQueries {
			c.addf(report.UnsupportedError, RuleQueryResultStatus, "the queue family does not support result status queries")
		}
	case resource.QueryTypeEncodeFeedback:
		if !encode {
			c.addf(report.ConsistencyError, RuleQueryType, "encode feedback queries cannot be used with a decode command")
		} else if extra := pool.FeedbackFlags &^ c.caps.Encode.SupportedEncodeFeedbackFlags; extra != 0 {
			c.addf(report.UnsupportedError, RuleQueryFeedbackFlags, "encode feedback flags %#x are not supported by the profile", uint32(extra))
		}
	case resource.QueryTypeOther:
		c.addf(report.ConsistencyError, RuleQueryType, "query type %v cannot be used with video coding commands", pool.Type)
	}
	if pool.Profile == nil || *pool.Profile != c.sc.session.Profile() {
		c.addf(report.ConsistencyError, RuleQueryProfile, "query pool %v was not created for the session's video profile", pool.Handle)
	}
}
