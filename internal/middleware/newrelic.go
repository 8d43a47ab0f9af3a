package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// routeAttributes are the path parameters copied onto the New Relic transaction.
var routeAttributes = map[string]string{
	"id":   "resource.id",
	"type": "document.type",
}

// TransactionAttributes annotates the transaction started by nrgin with the
// route's resource identifiers and the authenticated admin, if any. Requests
// without a transaction pass through.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		for param, attr := range routeAttributes {
			if v := c.Param(param); v != "" {
				txn.AddAttribute(attr, v)
			}
		}

		c.Next()

		if userID := c.GetString(ContextKeyUserID); userID != "" {
			txn.AddAttribute("admin.user_id", userID)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
