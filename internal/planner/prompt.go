package planner

// planningPrompt is the template sent to the planning worker.
const planningPrompt = `Break this request into tasks for a team of AI workers. Each task is handled by one worker with a specific role.

Request:
%s

Return ONLY a JSON array of tasks with this exact structure (no other text):
[
  {
    "description": "What this task should accomplish",
    "role": "general|code|creative|research|specialist",
    "depends_on": ["description of a prerequisite task"]
  }
]

Guidelines:
- Keep tasks independent where possible so they can run in parallel
- Add a dependency only when a task genuinely needs another task's output
- Use empty array [] for depends_on when there are no prerequisites
- Pick the role that best matches each task: research for fact-finding, code for programming, creative for writing, specialist for deep domain analysis, general for everything else
- Descriptions must be unique; dependencies reference tasks by their exact description`
