package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shaiso/Tripleo/internal/domain"
	"github.com/shaiso/Tripleo/internal/objectstore"
)

// Имена workflows и actions управления планами.
const (
	WorkflowCreateDeploymentPlan = "tripleo.plan_management.v1.create_deployment_plan"
	WorkflowExportDeploymentPlan = "tripleo.plan_management.v1.export_deployment_plan"
	WorkflowDeployPlan           = "tripleo.deployment.v1.deploy_plan"

	ActionListPlans       = "tripleo.plan.list"
	ActionDeletePlan      = "tripleo.plan.delete"
	ActionCreateContainer = "tripleo.plan.create_container"
)

// PlanEnvironmentObject — имя объекта с окружением плана.
const PlanEnvironmentObject = "plan-environment.yaml"

// ObjectStore — операции хранилища, нужные для создания плана из шаблонов.
type ObjectStore interface {
	GetAccount(ctx context.Context) ([]objectstore.Container, error)
	GetContainer(ctx context.Context, container string) ([]objectstore.Object, error)
	PutObject(ctx context.Context, container, name string, body io.Reader) error
	DeleteObject(ctx context.Context, container, name string) error
	ExtractArchive(ctx context.Context, container string, archive io.Reader) error
}

// ListPlans возвращает имена планов.
func (r *Runner) ListPlans(ctx context.Context) ([]string, error) {
	result, err := r.CallAction(ctx, ActionListPlans, nil)
	if err != nil {
		return nil, err
	}
	plans := result.ResultStrings()
	if plans == nil {
		plans = []string{}
	}
	return plans, nil
}

// DeletePlan удаляет план и его контейнер.
//
// Action возвращает null при успехе и текст ошибки при неудаче.
func (r *Runner) DeletePlan(ctx context.Context, container string) error {
	if container == "" {
		return invalidArgument("plan name is required")
	}

	result, err := r.CallAction(ctx, ActionDeletePlan, map[string]any{"container": container})
	if err != nil {
		return &WorkflowError{
			Workflow: ActionDeletePlan,
			Message:  fmt.Sprintf("Exception deleting plan: %v", actionErrorText(result, err)),
			Err:      fmt.Errorf("%w: %w", ErrWorkflowService, err),
		}
	}

	if v := result.ResultValue(); v != nil {
		return &WorkflowError{
			Workflow:    ActionDeletePlan,
			ExecutionID: result.ID,
			Message:     fmt.Sprintf("Exception deleting plan: %s", result.ErrorText()),
			Err:         ErrWorkflowService,
		}
	}
	return nil
}

// PlanInput — параметры создания плана.
type PlanInput struct {
	// Container — имя плана (контейнера).
	Container string `validate:"required"`

	// GeneratePasswords — сгенерировать пароли сервисов.
	GeneratePasswords bool

	// SourceURL — git-репозиторий с шаблонами (только для плана по умолчанию).
	SourceURL string `validate:"omitempty,url"`

	// TemplatesDir — локальный каталог шаблонов. Пустой — шаблоны по умолчанию.
	TemplatesDir string `validate:"omitempty,dir"`

	// PlanEnvironmentFile — файл окружения плана (только вместе с TemplatesDir).
	PlanEnvironmentFile string `validate:"omitempty,file"`
}

// CreatePlan создаёт план из шаблонов по умолчанию или из локального каталога.
func (r *Runner) CreatePlan(ctx context.Context, in PlanInput) error {
	if err := checkStruct(in); err != nil {
		return err
	}
	if in.TemplatesDir == "" {
		if in.PlanEnvironmentFile != "" {
			return invalidArgument("a plan environment file requires a templates directory")
		}
		return r.CreateDefaultPlan(ctx, in.Container, in.GeneratePasswords, in.SourceURL)
	}
	return r.CreatePlanFromTemplates(ctx, in.Container, in.TemplatesDir, in.GeneratePasswords, in.PlanEnvironmentFile)
}

// CreateDefaultPlan создаёт план из шаблонов, установленных на undercloud.
func (r *Runner) CreateDefaultPlan(ctx context.Context, container string, generatePasswords bool, sourceURL string) error {
	var source any
	if sourceURL != "" {
		source = sourceURL
	}

	return r.createDeploymentPlan(ctx, map[string]any{
		"container":             container,
		"generate_passwords":    generatePasswords,
		"use_default_templates": true,
		"source_url":            source,
	})
}

// CreatePlanFromTemplates загружает локальные шаблоны в новый контейнер
// и создаёт из них план. Если workflow не удался, загруженные объекты удаляются.
func (r *Runner) CreatePlanFromTemplates(ctx context.Context, container, templatesDir string, generatePasswords bool, planEnvFile string) error {
	if r.objects == nil {
		return errors.New("object store is not configured")
	}

	r.println("Creating Swift container to store the plan")

	result, err := r.CallAction(ctx, ActionCreateContainer, map[string]any{"container": container})
	if err != nil {
		return &WorkflowError{
			Workflow: ActionCreateContainer,
			Message:  fmt.Sprintf("Unable to create plan. %v", actionErrorText(result, err)),
			Err:      fmt.Errorf("%w: %w", ErrPlanCreation, err),
		}
	}
	if v := result.ResultValue(); v != nil {
		return &WorkflowError{
			Workflow:    ActionCreateContainer,
			ExecutionID: result.ID,
			Message:     fmt.Sprintf("Unable to create plan. %s", result.ErrorText()),
			Err:         ErrPlanCreation,
		}
	}

	r.println(fmt.Sprintf("Creating plan from template files in: %s", templatesDir))

	if err := r.uploadTemplates(ctx, container, templatesDir, planEnvFile); err != nil {
		return err
	}

	err = r.createDeploymentPlan(ctx, map[string]any{
		"container":          container,
		"generate_passwords": generatePasswords,
	})
	if errors.Is(err, ErrWorkflowService) {
		if cleanupErr := r.emptyContainer(ctx, container); cleanupErr != nil {
			r.logger.Warn("failed to clean up plan container",
				"container", container,
				"error", cleanupErr,
			)
		}
	}
	return err
}

// uploadTemplates загружает архив шаблонов и окружение плана.
func (r *Runner) uploadTemplates(ctx context.Context, container, templatesDir, planEnvFile string) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(objectstore.CreateTarball(templatesDir, pw))
	}()

	err := r.objects.ExtractArchive(ctx, container, pr)
	pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("upload templates from %s: %w", templatesDir, err)
	}

	if planEnvFile == "" {
		return nil
	}

	f, err := os.Open(planEnvFile)
	if err != nil {
		return fmt.Errorf("open plan environment file: %w", err)
	}
	defer f.Close()

	if err := r.objects.PutObject(ctx, container, PlanEnvironmentObject, f); err != nil {
		return fmt.Errorf("upload plan environment: %w", err)
	}
	return nil
}

// emptyContainer удаляет все объекты контейнера, если он существует.
func (r *Runner) emptyContainer(ctx context.Context, container string) error {
	containers, err := r.objects.GetAccount(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, c := range containers {
		if c.Name == container {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	objects, err := r.objects.GetContainer(ctx, container)
	if err != nil {
		return err
	}

	var errs []error
	for _, obj := range objects {
		if err := r.objects.DeleteObject(ctx, container, obj.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) createDeploymentPlan(ctx context.Context, input map[string]any) error {
	res, err := r.Execute(ctx, WorkflowCreateDeploymentPlan, input)
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrWorkflowService, "Exception creating plan: "+res.Payload.Message())
	}

	r.println("Plan created.")
	return nil
}

// Orchestration — операции сервиса оркестрации, нужные для ожидания стека.
type Orchestration interface {
	GetStack(ctx context.Context, name string) (*domain.Stack, error)
	WaitForStack(ctx context.Context, name, action string) (*domain.Stack, error)
}

// DeployPlan запускает развёртывание плана и ждёт, пока стек
// с именем плана будет создан или обновлён.
//
// Без клиента оркестрации ожидание стека пропускается.
func (r *Runner) DeployPlan(ctx context.Context, container string, runValidations, skipDeployIdentifier bool) error {
	if container == "" {
		return invalidArgument("plan name is required")
	}

	action := domain.StackActionCreate
	if r.orchestration != nil {
		stack, err := r.orchestration.GetStack(ctx, container)
		if err != nil {
			return fmt.Errorf("deploy plan %s: %w", container, err)
		}
		if stack != nil {
			action = domain.StackActionUpdate
		}
	}

	res, err := r.execute(ctx, WorkflowDeployPlan, map[string]any{
		"container":              container,
		"run_validations":        runValidations,
		"skip_deploy_identifier": skipDeployIdentifier,
	}, func(execution *domain.Execution) {
		r.println(fmt.Sprintf("Started workflow %s. Execution ID: %s", execution.WorkflowName, execution.ID))
	})
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return res.Fail(ErrWorkflowService, "Exception deploying plan: "+res.Payload.Message())
	}

	if r.orchestration == nil {
		r.logger.Debug("no orchestration client, not waiting for stack", "stack", container)
		return nil
	}
	return r.waitForStack(ctx, res, container, action)
}

func (r *Runner) waitForStack(ctx context.Context, res *Result, name, action string) error {
	failed := "Heat Stack create failed."
	if action == domain.StackActionUpdate {
		failed = "Heat Stack update failed."
	}

	stack, err := r.orchestration.WaitForStack(ctx, name, action)
	if err != nil {
		return res.Fail(errors.Join(ErrDeployment, err), failed)
	}
	if !stack.Completed(action) {
		werr := res.Fail(ErrDeployment, failed)
		werr.Status = stack.Status
		return werr
	}

	r.logger.Info("stack deployed", "stack", name, "stack_status", stack.Status)
	return nil
}

// ExportPlan экспортирует план и возвращает временную ссылку на архив.
func (r *Runner) ExportPlan(ctx context.Context, plan string) (string, error) {
	if plan == "" {
		return "", invalidArgument("plan name is required")
	}

	res, err := r.Execute(ctx, WorkflowExportDeploymentPlan, map[string]any{
		"plan": plan,
	})
	if err != nil {
		return "", err
	}

	if !res.Succeeded() {
		return "", res.Fail(ErrPlanExport, "Exception exporting plan: "+res.Payload.Message())
	}

	tempURL := res.Payload.String("tempurl")
	if tempURL == "" {
		return "", res.Fail(ErrPlanExport, "Exception exporting plan: workflow returned no tempurl")
	}
	return tempURL, nil
}

// actionErrorText возвращает текст ошибки action: из output, если он есть.
func actionErrorText(result *domain.ActionResult, err error) string {
	if result != nil && result.Output != "" {
		return result.ErrorText()
	}
	return err.Error()
}
