package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/shaiso/Tripleo/internal/domain"
	"github.com/shaiso/Tripleo/internal/workflows"
)

// --- Fakes ---

// fakeWorkflows записывает вызовы операций.
type fakeWorkflows struct {
	calls []string

	registerIn  workflows.RegisterInput
	discoverIn  workflows.DiscoverInput
	configureIn workflows.ConfigureInput
	raidIn      workflows.RaidInput
	planIn      workflows.PlanInput
	nodeUUIDs   []string
	validations bool
	deleted     []string

	nodes   []domain.Node
	plans   []string
	tempURL string
	errs    map[string]error
}

func (f *fakeWorkflows) record(name string) error {
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeWorkflows) RegisterOrUpdate(_ context.Context, in workflows.RegisterInput) ([]domain.Node, error) {
	f.registerIn = in
	if err := f.record("RegisterOrUpdate"); err != nil {
		return nil, err
	}
	return f.nodes, nil
}

func (f *fakeWorkflows) DiscoverAndEnroll(_ context.Context, in workflows.DiscoverInput) ([]domain.Node, error) {
	f.discoverIn = in
	if err := f.record("DiscoverAndEnroll"); err != nil {
		return nil, err
	}
	return f.nodes, nil
}

func (f *fakeWorkflows) Provide(_ context.Context, nodeUUIDs []string) error {
	f.nodeUUIDs = nodeUUIDs
	return f.record("Provide")
}

func (f *fakeWorkflows) ProvideManageableNodes(context.Context) error {
	return f.record("ProvideManageableNodes")
}

func (f *fakeWorkflows) Introspect(_ context.Context, nodeUUIDs []string, runValidations bool) error {
	f.nodeUUIDs = nodeUUIDs
	f.validations = runValidations
	return f.record("Introspect")
}

func (f *fakeWorkflows) IntrospectManageableNodes(_ context.Context, runValidations bool) error {
	f.validations = runValidations
	return f.record("IntrospectManageableNodes")
}

func (f *fakeWorkflows) Configure(_ context.Context, in workflows.ConfigureInput) error {
	f.configureIn = in
	return f.record("Configure")
}

func (f *fakeWorkflows) ConfigureManageableNodes(_ context.Context, in workflows.ConfigureInput) error {
	f.configureIn = in
	return f.record("ConfigureManageableNodes")
}

func (f *fakeWorkflows) CreateRaidConfiguration(_ context.Context, in workflows.RaidInput) error {
	f.raidIn = in
	return f.record("CreateRaidConfiguration")
}

func (f *fakeWorkflows) ListPlans(context.Context) ([]string, error) {
	if err := f.record("ListPlans"); err != nil {
		return nil, err
	}
	return f.plans, nil
}

func (f *fakeWorkflows) CreatePlan(_ context.Context, in workflows.PlanInput) error {
	f.planIn = in
	return f.record("CreatePlan")
}

func (f *fakeWorkflows) DeletePlan(_ context.Context, container string) error {
	f.deleted = append(f.deleted, container)
	return f.record("DeletePlan")
}

func (f *fakeWorkflows) DeployPlan(_ context.Context, container string, runValidations, _ bool) error {
	f.planIn = workflows.PlanInput{Container: container}
	f.validations = runValidations
	return f.record("DeployPlan")
}

func (f *fakeWorkflows) ExportPlan(context.Context, string) (string, error) {
	if err := f.record("ExportPlan"); err != nil {
		return "", err
	}
	return f.tempURL, nil
}

// fakeDownloader пишет заданное содержимое.
type fakeDownloader struct {
	url  string
	body string
	err  error
}

func (d *fakeDownloader) Download(_ context.Context, rawURL string, w io.Writer) (int64, error) {
	d.url = rawURL
	n, err := io.WriteString(w, d.body)
	if err != nil {
		return int64(n), err
	}
	return int64(n), d.err
}

// --- Helpers ---

type cmdHarness struct {
	wf     *fakeWorkflows
	dl     *fakeDownloader
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	json   bool
	closed int
}

func newCmdHarness() *cmdHarness {
	return &cmdHarness{
		wf:     &fakeWorkflows{errs: map[string]error{}},
		dl:     &fakeDownloader{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
}

func (h *cmdHarness) run(args ...string) error {
	clientsFn := func() (*Clients, error) {
		return &Clients{
			Workflows:  h.wf,
			Downloader: h.dl,
			closers: []func() error{func() error {
				h.closed++
				return nil
			}},
		}, nil
	}
	outputFn := func() *Output { return NewOutputTo(h.json, h.stdout, h.stderr) }

	cmd := NewOvercloudCmd(clientsFn, outputFn)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const nodesYAML = `nodes:
  - name: node-1
    pm_type: ipmi
    pm_addr: 192.168.24.10
  - name: node-2
    pm_type: ipmi
    pm_addr: 192.168.24.11
`

// --- Node Tests ---

func TestNodeImport(t *testing.T) {
	h := newCmdHarness()
	h.wf.nodes = []domain.Node{
		{UUID: "uuid-1", Name: "node-1", ProvisionState: "manageable"},
		{UUID: "uuid-2", Name: "node-2", ProvisionState: "manageable"},
	}
	path := writeFile(t, "nodes.yaml", nodesYAML)

	if err := h.run("node", "import", "--introspect", "--provide", "--run-validations", path); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"RegisterOrUpdate", "Introspect", "Provide"}
	if !reflect.DeepEqual(h.wf.calls, want) {
		t.Errorf("calls = %v, want %v", h.wf.calls, want)
	}
	if len(h.wf.registerIn.Nodes) != 2 {
		t.Errorf("registered %d nodes, want 2", len(h.wf.registerIn.Nodes))
	}
	if h.wf.registerIn.KernelName != workflows.DefaultKernelName {
		t.Errorf("kernel = %q, want %q", h.wf.registerIn.KernelName, workflows.DefaultKernelName)
	}
	if !reflect.DeepEqual(h.wf.nodeUUIDs, []string{"uuid-1", "uuid-2"}) {
		t.Errorf("node uuids = %v", h.wf.nodeUUIDs)
	}
	if !h.wf.validations {
		t.Error("expected run-validations to be passed")
	}
	if !strings.Contains(h.stdout.String(), "uuid-2") {
		t.Errorf("stdout = %q, want node table", h.stdout.String())
	}
	if h.closed != 1 {
		t.Errorf("clients closed %d times, want 1", h.closed)
	}
}

func TestNodeImport_NoDeployImage(t *testing.T) {
	h := newCmdHarness()
	path := writeFile(t, "nodes.json", `{"nodes": [{"pm_type": "ipmi"}]}`)

	if err := h.run("node", "import", "--no-deploy-image", "--instance-boot-option", "netboot", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	in := h.wf.registerIn
	if in.KernelName != "" || in.RamdiskName != "" {
		t.Errorf("deploy image = %q/%q, want empty", in.KernelName, in.RamdiskName)
	}
	if in.InstanceBootOption != "netboot" {
		t.Errorf("boot option = %q, want netboot", in.InstanceBootOption)
	}
}

func TestNodeImport_RegisterFails(t *testing.T) {
	h := newCmdHarness()
	h.wf.errs["RegisterOrUpdate"] = workflows.ErrRegisterOrUpdate
	path := writeFile(t, "nodes.yaml", nodesYAML)

	err := h.run("node", "import", "--introspect", path)
	if !errors.Is(err, workflows.ErrRegisterOrUpdate) {
		t.Fatalf("expected ErrRegisterOrUpdate, got %v", err)
	}
	if len(h.wf.calls) != 1 {
		t.Errorf("calls = %v, want only RegisterOrUpdate", h.wf.calls)
	}
}

func TestNodeIntrospect(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("node", "introspect", "--provide", "uuid-1", "uuid-2"); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"Introspect", "Provide"}
	if !reflect.DeepEqual(h.wf.calls, want) {
		t.Errorf("calls = %v, want %v", h.wf.calls, want)
	}
	if !reflect.DeepEqual(h.wf.nodeUUIDs, []string{"uuid-1", "uuid-2"}) {
		t.Errorf("node uuids = %v", h.wf.nodeUUIDs)
	}
}

func TestNodeIntrospect_AllManageable(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("node", "introspect", "--all-manageable", "--provide", "--run-validations"); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"IntrospectManageableNodes", "ProvideManageableNodes"}
	if !reflect.DeepEqual(h.wf.calls, want) {
		t.Errorf("calls = %v, want %v", h.wf.calls, want)
	}
	if !h.wf.validations {
		t.Error("expected run-validations to be passed")
	}
}

func TestNodeSelection_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"introspect nothing", []string{"node", "introspect"}},
		{"introspect both", []string{"node", "introspect", "--all-manageable", "uuid-1"}},
		{"provide nothing", []string{"node", "provide"}},
		{"configure both", []string{"node", "configure", "--all-manageable", "uuid-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCmdHarness()
			err := h.run(tt.args...)
			if !errors.Is(err, workflows.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if len(h.wf.calls) != 0 {
				t.Errorf("unexpected calls %v", h.wf.calls)
			}
			if h.closed != 0 {
				t.Error("clients should not be created")
			}
		})
	}
}

func TestNodeProvide_AllManageable(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("node", "provide", "--all-manageable"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(h.wf.calls, []string{"ProvideManageableNodes"}) {
		t.Errorf("calls = %v", h.wf.calls)
	}
}

func TestNodeConfigure(t *testing.T) {
	h := newCmdHarness()

	err := h.run("node", "configure", "--root-device", "smallest", "--overwrite-root-device-hints", "uuid-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	in := h.wf.configureIn
	if !reflect.DeepEqual(h.wf.calls, []string{"Configure"}) {
		t.Errorf("calls = %v", h.wf.calls)
	}
	if !reflect.DeepEqual(in.NodeUUIDs, []string{"uuid-1"}) {
		t.Errorf("node uuids = %v", in.NodeUUIDs)
	}
	if in.RootDevice != "smallest" || !in.OverwriteRootDeviceHints {
		t.Errorf("root device = %q overwrite=%v", in.RootDevice, in.OverwriteRootDeviceHints)
	}
	if in.RootDeviceMinimumSize != workflows.DefaultRootDeviceMinimumSize {
		t.Errorf("minimum size = %d, want %d", in.RootDeviceMinimumSize, workflows.DefaultRootDeviceMinimumSize)
	}
	if in.KernelName != workflows.DefaultKernelName || in.RamdiskName != workflows.DefaultRamdiskName {
		t.Errorf("deploy image = %q/%q", in.KernelName, in.RamdiskName)
	}
}

func TestNodeConfigure_AllManageable(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("node", "configure", "--all-manageable", "--root-device-minimum-size", "10"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(h.wf.calls, []string{"ConfigureManageableNodes"}) {
		t.Errorf("calls = %v", h.wf.calls)
	}
	if h.wf.configureIn.RootDeviceMinimumSize != 10 {
		t.Errorf("minimum size = %d, want 10", h.wf.configureIn.RootDeviceMinimumSize)
	}
}

func TestNodeDiscover(t *testing.T) {
	h := newCmdHarness()
	h.wf.nodes = []domain.Node{{UUID: "uuid-9"}}

	err := h.run("node", "discover",
		"--range", "10.0.0.0/24",
		"--credentials", "admin:secret",
		"--credentials", "root:calvin",
		"--port", "623",
		"--introspect",
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	in := h.wf.discoverIn
	if in.Range != "10.0.0.0/24" {
		t.Errorf("range = %q", in.Range)
	}
	wantCreds := [][]string{{"admin", "secret"}, {"root", "calvin"}}
	if !reflect.DeepEqual(in.Credentials, wantCreds) {
		t.Errorf("credentials = %v, want %v", in.Credentials, wantCreds)
	}
	if !reflect.DeepEqual(in.Ports, []int{623}) {
		t.Errorf("ports = %v", in.Ports)
	}
	want := []string{"DiscoverAndEnroll", "Introspect"}
	if !reflect.DeepEqual(h.wf.calls, want) {
		t.Errorf("calls = %v, want %v", h.wf.calls, want)
	}
}

func TestNodeDiscover_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad credentials", []string{"node", "discover", "--ip", "10.0.0.1", "--credentials", "admin"}},
		{"no credentials", []string{"node", "discover", "--ip", "10.0.0.1"}},
		{"no targets", []string{"node", "discover", "--credentials", "admin:pw"}},
		{"ip and range", []string{"node", "discover", "--ip", "10.0.0.1", "--range", "10.0.0.0/24", "--credentials", "admin:pw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCmdHarness()
			if err := h.run(tt.args...); err == nil {
				t.Fatal("expected error")
			}
			if len(h.wf.calls) != 0 {
				t.Errorf("unexpected calls %v", h.wf.calls)
			}
		})
	}
}

// --- RAID Tests ---

func TestRaidCreate(t *testing.T) {
	h := newCmdHarness()

	err := h.run("raid", "create", "--node", "uuid-1", "--node", "uuid-2",
		`{"logical_disks": [{"size_gb": 100, "raid_level": "1"}]}`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	in := h.wf.raidIn
	if !reflect.DeepEqual(in.NodeUUIDs, []string{"uuid-1", "uuid-2"}) {
		t.Errorf("node uuids = %v", in.NodeUUIDs)
	}
	disks, _ := in.Configuration["logical_disks"].([]any)
	if len(disks) != 1 {
		t.Errorf("logical disks = %v", in.Configuration["logical_disks"])
	}
}

func TestRaidCreate_RequiresNode(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("raid", "create", `{"logical_disks": []}`); err == nil {
		t.Fatal("expected error without --node")
	}
	if len(h.wf.calls) != 0 {
		t.Errorf("unexpected calls %v", h.wf.calls)
	}
}

// --- Plan Tests ---

func TestPlanList(t *testing.T) {
	h := newCmdHarness()
	h.wf.plans = []string{"overcloud", "test-plan"}

	if err := h.run("plan", "list"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := h.stdout.String()
	for _, want := range []string{"PLAN NAME", "overcloud", "test-plan"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q: %q", want, out)
		}
	}
}

func TestPlanList_JSON(t *testing.T) {
	h := newCmdHarness()
	h.json = true
	h.wf.plans = []string{"overcloud"}

	if err := h.run("plan", "list"); err != nil {
		t.Fatalf("run: %v", err)
	}

	var plans []string
	if err := json.Unmarshal(h.stdout.Bytes(), &plans); err != nil {
		t.Fatalf("decode %q: %v", h.stdout.String(), err)
	}
	if !reflect.DeepEqual(plans, []string{"overcloud"}) {
		t.Errorf("plans = %v", plans)
	}
}

func TestPlanCreate(t *testing.T) {
	h := newCmdHarness()

	err := h.run("plan", "create", "--templates", "/tmp/tht", "-p", "env.yaml", "--disable-password-generation", "overcloud")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := workflows.PlanInput{
		Container:           "overcloud",
		GeneratePasswords:   false,
		TemplatesDir:        "/tmp/tht",
		PlanEnvironmentFile: "env.yaml",
	}
	if !reflect.DeepEqual(h.wf.planIn, want) {
		t.Errorf("plan input = %+v, want %+v", h.wf.planIn, want)
	}
}

func TestPlanCreate_Default(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("plan", "create", "--source-url", "http://example.com/tht.git", "overcloud"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !h.wf.planIn.GeneratePasswords {
		t.Error("expected password generation enabled by default")
	}
	if h.wf.planIn.SourceURL != "http://example.com/tht.git" {
		t.Errorf("source url = %q", h.wf.planIn.SourceURL)
	}
}

func TestPlanDelete(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("plan", "delete", "plan-a", "plan-b"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(h.wf.deleted, []string{"plan-a", "plan-b"}) {
		t.Errorf("deleted = %v", h.wf.deleted)
	}
	if !strings.Contains(h.stderr.String(), "Deleting plan plan-b...") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestPlanDelete_StopsOnError(t *testing.T) {
	h := newCmdHarness()
	h.wf.errs["DeletePlan"] = workflows.ErrWorkflowService

	err := h.run("plan", "delete", "plan-a", "plan-b")
	if !errors.Is(err, workflows.ErrWorkflowService) {
		t.Fatalf("expected ErrWorkflowService, got %v", err)
	}
	if !reflect.DeepEqual(h.wf.deleted, []string{"plan-a"}) {
		t.Errorf("deleted = %v, want only plan-a", h.wf.deleted)
	}
}

func TestPlanDeploy(t *testing.T) {
	h := newCmdHarness()

	if err := h.run("plan", "deploy", "--run-validations", "overcloud"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.wf.planIn.Container != "overcloud" || !h.wf.validations {
		t.Errorf("deploy %q validations=%v", h.wf.planIn.Container, h.wf.validations)
	}
}

func TestPlanExport(t *testing.T) {
	h := newCmdHarness()
	h.wf.tempURL = "http://swift/v1/AUTH_test/plan-exports/overcloud.tar.gz?temp_url_sig=x"
	h.dl.body = "tarball"
	path := filepath.Join(t.TempDir(), "out.tar.gz")

	if err := h.run("plan", "export", "-o", path, "overcloud"); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "tarball" {
		t.Errorf("content = %q", data)
	}
	if h.dl.url != h.wf.tempURL {
		t.Errorf("downloaded %q, want %q", h.dl.url, h.wf.tempURL)
	}
	if !strings.Contains(h.stderr.String(), "Exporting plan overcloud...") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestPlanExport_FileExists(t *testing.T) {
	h := newCmdHarness()
	path := writeFile(t, "out.tar.gz", "old")

	err := h.run("plan", "export", "-o", path, "overcloud")
	if !errors.Is(err, workflows.ErrPlanExport) {
		t.Fatalf("expected ErrPlanExport, got %v", err)
	}
	want := "File '" + path + "' already exists, not exporting."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if len(h.wf.calls) != 0 {
		t.Errorf("unexpected calls %v", h.wf.calls)
	}
}

func TestPlanExport_ForceOverwrite(t *testing.T) {
	h := newCmdHarness()
	h.dl.body = "new"
	path := writeFile(t, "out.tar.gz", "old")

	if err := h.run("plan", "export", "-f", "-o", path, "overcloud"); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestPlanExport_DownloadFailsRemovesFile(t *testing.T) {
	h := newCmdHarness()
	h.dl.body = "partial"
	h.dl.err = errors.New("connection reset")
	path := filepath.Join(t.TempDir(), "out.tar.gz")

	if err := h.run("plan", "export", "-o", path, "overcloud"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected partial file removed, stat err = %v", err)
	}
}

func TestPlanExport_WorkflowFails(t *testing.T) {
	h := newCmdHarness()
	h.wf.errs["ExportPlan"] = workflows.ErrPlanExport
	path := filepath.Join(t.TempDir(), "out.tar.gz")

	err := h.run("plan", "export", "-o", path, "overcloud")
	if !errors.Is(err, workflows.ErrPlanExport) {
		t.Fatalf("expected ErrPlanExport, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("no file should be created when export fails")
	}
}

// --- Clients Tests ---

func TestWithClients_ClientsError(t *testing.T) {
	wantErr := errors.New("broker unreachable")
	called := false

	err := withClients(func() (*Clients, error) { return nil, wantErr }, func(*Clients) error {
		called = true
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if called {
		t.Error("fn should not be called")
	}
}

func TestWithClients_CloseError(t *testing.T) {
	closeErr := errors.New("close failed")
	clientsFn := func() (*Clients, error) {
		return &Clients{closers: []func() error{func() error { return closeErr }}}, nil
	}

	if err := withClients(clientsFn, func(*Clients) error { return nil }); !errors.Is(err, closeErr) {
		t.Errorf("expected close error, got %v", err)
	}

	fnErr := errors.New("fn failed")
	if err := withClients(clientsFn, func(*Clients) error { return fnErr }); !errors.Is(err, fnErr) {
		t.Errorf("expected fn error to win, got %v", err)
	}
}
