// Command payrollctl uploads timesheets to and reads reports from a
// payroll server.
package main

func main() {
	Execute()
}
