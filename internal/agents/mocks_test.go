package agents

import "context"

type fakeClient struct {
	fn    func(system, user string) (string, error)
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.fn(system, user)
}
