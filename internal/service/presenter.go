package service

// Presenter is the presentation layer as seen from the session. The session
// calls it after every state change and never reaches into UI state itself.
type Presenter interface {
	RenderPage(view PageView)
	RenderProgress(loaded, total int)
	RenderError(err error)
}

// NopPresenter discards every render call.
type NopPresenter struct{}

func (NopPresenter) RenderPage(PageView)      {}
func (NopPresenter) RenderProgress(int, int) {}
func (NopPresenter) RenderError(error)       {}
