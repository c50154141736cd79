package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the observer handlers passed to every graph run.
// metrics may be nil.
func NewAllCallbacks(metrics *Metrics) []einocb.Handler {
	typed := callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler(metrics)).
		Prompt(newPromptHandler()).
		Handler()

	return []einocb.Handler{typed, newNodeHandler()}
}
