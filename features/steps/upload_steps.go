//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"time-for/cmd"
	"time-for/infrastructure/desktop"
	"time-for/infrastructure/imgur"

	"github.com/cucumber/godog"
)

// uploadContext holds test state for upload scenarios
type uploadContext struct {
	output *bytes.Buffer
	err    error
}

// SharedUploadContext is reset before each scenario via Before hook
var SharedUploadContext = &uploadContext{}

func InitializeUploadScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedUploadContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.Step(`^a local clip "([^"]*)"$`, testCtx.aLocalClip)
	ctx.Step(`^I upload "([^"]*)"$`, testCtx.iUpload)
	ctx.Step(`^I upload "([^"]*)" and copy the link$`, testCtx.iUploadAndCopyTheLink)
	ctx.Step(`^the upload should succeed$`, testCtx.theUploadShouldSucceed)
	ctx.Step(`^the upload should fail with "([^"]*)"$`, testCtx.theUploadShouldFailWith)
	ctx.Step(`^the upload output should contain the imgur link$`, testCtx.theUploadOutputShouldContainTheImgurLink)
}

func (u *uploadContext) aLocalClip(name string) error {
	path := filepath.Join(SharedServices.tempDir, name)
	return os.WriteFile(path, []byte("clip data for "+name), 0644)
}

func (u *uploadContext) iUpload(name string) error {
	return u.upload(name, nil)
}

func (u *uploadContext) iUploadAndCopyTheLink(name string) error {
	return u.upload(name, SharedServices.clipboard)
}

func (u *uploadContext) upload(name string, clip desktop.Clipboard) error {
	svc := SharedServices
	client := imgur.NewClient("test-client",
		imgur.WithBaseURL(svc.imgur.URL),
		imgur.WithHTTPClient(svc.imgur.Client()),
		imgur.WithLogger(quietLogger()),
	)

	path := filepath.Join(svc.tempDir, name)
	u.err = cmd.RunUploadWithDependencies(context.Background(), client, "imgur", path, clip, u.output)
	return nil
}

func (u *uploadContext) theUploadShouldSucceed() error {
	if u.err != nil {
		return fmt.Errorf("expected upload to succeed, got: %v", u.err)
	}
	return nil
}

func (u *uploadContext) theUploadShouldFailWith(msg string) error {
	if u.err == nil {
		return fmt.Errorf("expected upload to fail with %q, got success", msg)
	}
	if !strings.Contains(u.err.Error(), msg) {
		return fmt.Errorf("expected error containing %q, got: %v", msg, u.err)
	}
	return nil
}

func (u *uploadContext) theUploadOutputShouldContainTheImgurLink() error {
	if !strings.Contains(u.output.String(), "Link: "+imgurVideoLink) {
		return fmt.Errorf("expected output to contain the link, got:\n%s", u.output.String())
	}
	return nil
}
