// Package service contains the application use cases. It coordinates domain
// objects and the store interfaces (defined in internal/store) to manage
// tasks and user accounts.
//
// Key components:
//
// 1. TaskService:
//   - Reads top-level tasks with their direct sub-tasks, in full or by page
//   - Creates, updates, and deletes a task and its sub-tasks in one transaction
//   - Enforces the single level of nesting: a sub-task never has children
//
// 2. AuthService:
//   - Registers users with bcrypt-hashed passwords
//   - Verifies credentials and issues access tokens through auth.JWTService
//
// 3. Error Handling:
//   - Store errors are translated to service sentinels (ErrTaskNotFound, ErrUserNotFound)
//   - Unexpected failures are logged once and returned as a TaskServiceError,
//     whose message is safe to show to clients
//
// Services receive their dependencies through constructors and never import a
// concrete store implementation.
package service
